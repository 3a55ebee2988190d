package command

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-journey/internal/application/apptest"
	"github.com/alem-hub/learning-journey/internal/application/saga"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/internal/domain/streak"
	"github.com/alem-hub/learning-journey/pkg/timeutil"
)

const user = "u1"

type handlers struct {
	fx       *apptest.Fixture
	start    *StartActivityHandler
	submit   *SubmitAnswerHandler
	complete *CompleteActivityHandler
	review   *ReviewMistakeHandler
	register *RegisterActivityHandler
	freeze   *ManageFreezeHandler
	unlock   *UnlockNextHandler
	goal     *SetDailyGoalHandler
	switcher *SwitchJourneyTypeHandler
	record   *RecordJourneyCompletionHandler
}

func setup(t *testing.T) *handlers {
	fx := apptest.New(t)
	policy := streak.DefaultPolicy()
	resolver := saga.NewEnrollmentSaga(fx.Catalog, fx.Catalog, fx.Journeys, fx.Clock, fx.Log)

	return &handlers{
		fx:       fx,
		start:    NewStartActivityHandler(fx.Catalog, fx.Records, fx.Locker, fx.Bus, fx.Clock, fx.Log),
		submit:   NewSubmitAnswerHandler(fx.Catalog, fx.Records, fx.Reviews, fx.Locker, fx.Clock, fx.Log),
		complete: NewCompleteActivityHandler(fx.Catalog, fx.Records, fx.Locker, fx.Bus, fx.Clock, fx.Log),
		review:   NewReviewMistakeHandler(fx.Records, fx.Reviews, fx.Locker, fx.Clock, fx.Log),
		register: NewRegisterActivityHandler(fx.Streaks, fx.Locker, fx.Bus, fx.Clock, policy, fx.Log),
		freeze:   NewManageFreezeHandler(fx.Streaks, fx.Locker, fx.Bus, fx.Clock, policy, fx.Log),
		unlock:   NewUnlockNextHandler(resolver, fx.Journeys, fx.Locker, fx.Bus, fx.Clock, fx.Log),
		goal:     NewSetDailyGoalHandler(resolver, fx.Journeys, fx.Locker, fx.Clock, fx.Log),
		switcher: NewSwitchJourneyTypeHandler(resolver, fx.Journeys, fx.Locker, fx.Bus, fx.Clock, fx.Log),
		record:   NewRecordJourneyCompletionHandler(resolver, fx.Journeys, fx.Locker, fx.Bus, timeutil.AlmatyTZ, fx.Log),
	}
}

func (h *handlers) answer(t *testing.T, activityID, questionID, value string) *completion.AnswerResult {
	t.Helper()
	res, err := h.submit.Handle(context.Background(), SubmitAnswerCommand{
		UserID: user, ActivityID: activityID, QuestionID: questionID, Value: value, TimeSpent: 30 * time.Second,
	})
	require.NoError(t, err)
	return res
}

// ═══════════════════════════════════════════════════════════════════════════
// Completion
// ═══════════════════════════════════════════════════════════════════════════

func TestStartActivity_Idempotent(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	first, err := h.start.Handle(ctx, StartActivityCommand{UserID: user, ActivityID: apptest.Practice})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, completion.StatusInProgress, first.Record.Status)
	assert.Equal(t, 2, first.Record.MaxScore)
	assert.Equal(t, apptest.Start, first.Record.StartedAt)

	h.fx.Clock.Advance(time.Hour)
	again, err := h.start.Handle(ctx, StartActivityCommand{UserID: user, ActivityID: apptest.Practice})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.Record.ID, again.Record.ID)
	assert.Equal(t, apptest.Start, again.Record.StartedAt)

	assert.Len(t, h.fx.Events.OfType(shared.EventActivityStarted), 1)
}

func TestStartActivity_Errors(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	_, err := h.start.Handle(ctx, StartActivityCommand{UserID: user, ActivityID: "missing"})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.start.Handle(ctx, StartActivityCommand{ActivityID: apptest.Lesson})
	assert.True(t, shared.IsValidation(err))
}

func TestSubmitAnswer(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	_, err := h.submit.Handle(ctx, SubmitAnswerCommand{UserID: user, ActivityID: apptest.Practice, QuestionID: "q1", Value: "4"})
	assert.ErrorIs(t, err, shared.ErrRecordNotFound)

	_, err = h.start.Handle(ctx, StartActivityCommand{UserID: user, ActivityID: apptest.Practice})
	require.NoError(t, err)

	res := h.answer(t, apptest.Practice, "q1", "4")
	assert.True(t, res.IsCorrect)
	assert.Equal(t, completion.Progress{Answered: 1, Total: 2}, res.Progress)

	res = h.answer(t, apptest.Practice, "q2", "5")
	assert.False(t, res.IsCorrect)
	assert.Equal(t, "7", res.Feedback.CorrectValue)
	assert.Equal(t, completion.Progress{Answered: 2, Total: 2}, res.Progress)

	// Повторный ответ на тот же вопрос - вторая попытка.
	res = h.answer(t, apptest.Practice, "q1", "4")
	assert.Equal(t, 2, res.Progress.Answered)

	record, err := h.fx.Records.Get(ctx, user, apptest.Practice)
	require.NoError(t, err)
	require.Len(t, record.Answers, 3)
	assert.Equal(t, 2, record.Answers[2].AttemptNumber)
	require.Len(t, record.Mistakes, 1)
	assert.Equal(t, "q2", record.Mistakes[0].QuestionID)

	due, err := h.fx.Reviews.DueForReview(ctx, user, h.fx.Clock.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "q2", due[0].QuestionID)

	_, err = h.submit.Handle(ctx, SubmitAnswerCommand{UserID: user, ActivityID: apptest.Practice, QuestionID: "q9", Value: "x"})
	assert.ErrorIs(t, err, shared.ErrQuestionNotFound)

	_, err = h.submit.Handle(ctx, SubmitAnswerCommand{UserID: user, ActivityID: apptest.Practice})
	assert.ErrorIs(t, err, shared.ErrInvalidAnswerInput)
}

func TestSubmitAnswer_ConcurrentCallsAreSerialized(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	_, err := h.start.Handle(ctx, StartActivityCommand{UserID: user, ActivityID: apptest.Practice})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.submit.Handle(ctx, SubmitAnswerCommand{
				UserID: user, ActivityID: apptest.Practice, QuestionID: "q1", Value: "wrong",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	record, err := h.fx.Records.Get(ctx, user, apptest.Practice)
	require.NoError(t, err)
	require.Len(t, record.Answers, n)
	require.Len(t, record.Mistakes, n)

	attempts := make([]int, 0, n)
	for _, a := range record.Answers {
		attempts = append(attempts, a.AttemptNumber)
	}
	sort.Ints(attempts)
	for i, got := range attempts {
		assert.Equal(t, i+1, got)
	}

	due, err := h.fx.Reviews.DueForReview(ctx, user, h.fx.Clock.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, n, due[0].Occurrences)
}

func TestSubmitAnswer_SameQuestionIDInTwoActivities(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	for _, id := range []string{apptest.Practice, apptest.Quiz} {
		_, err := h.start.Handle(ctx, StartActivityCommand{UserID: user, ActivityID: id})
		require.NoError(t, err)
	}
	h.answer(t, apptest.Practice, "q1", "5")
	h.answer(t, apptest.Quiz, "q1", "no")

	due, err := h.fx.Reviews.DueForReview(ctx, user, h.fx.Clock.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)

	correct := map[string]string{}
	for _, it := range due {
		assert.Equal(t, 1, it.Occurrences)
		correct[it.ActivityID] = it.CorrectValue
	}
	assert.Equal(t, map[string]string{apptest.Practice: "4", apptest.Quiz: "yes"}, correct)
}

func TestCompleteActivity_PerfectBonus(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	_, err := h.start.Handle(ctx, StartActivityCommand{UserID: user, ActivityID: apptest.Practice})
	require.NoError(t, err)
	h.answer(t, apptest.Practice, "q1", "4")
	h.answer(t, apptest.Practice, "q2", "7")

	res, err := h.complete.Handle(ctx, CompleteActivityCommand{UserID: user, ActivityID: apptest.Practice})
	require.NoError(t, err)
	assert.Equal(t, completion.StatusPerfect, res.Record.Status)
	assert.Equal(t, 100, res.Outcome.Score)
	assert.True(t, res.Outcome.IsPerfect)
	assert.Equal(t, 15, res.Outcome.XPEarned)
	assert.Equal(t, time.Minute, res.Outcome.TimeSpent)
	assert.Equal(t, 100, res.Summary.Score)

	completed := h.fx.Events.OfType(shared.EventActivityCompleted)
	require.Len(t, completed, 1)
	e := completed[0].(shared.ActivityCompletedEvent)
	assert.Equal(t, apptest.SubjectMath, e.SubjectID)
	assert.Equal(t, 15, e.XPEarned)
	assert.True(t, e.IsPerfect)
	assert.True(t, e.CountsForStreak)

	_, err = h.complete.Handle(ctx, CompleteActivityCommand{UserID: user, ActivityID: apptest.Practice})
	assert.ErrorIs(t, err, shared.ErrAlreadyCompleted)
	assert.True(t, shared.IsInvalidState(err))

	_, err = h.submit.Handle(ctx, SubmitAnswerCommand{UserID: user, ActivityID: apptest.Practice, QuestionID: "q1", Value: "4"})
	assert.ErrorIs(t, err, shared.ErrRecordTerminal)

	assert.Len(t, h.fx.Events.OfType(shared.EventActivityCompleted), 1)
}

func TestCompleteActivity_CountsForStreak(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	for _, id := range []string{apptest.Lesson, apptest.Practice} {
		_, err := h.start.Handle(ctx, StartActivityCommand{UserID: user, ActivityID: id})
		require.NoError(t, err)
	}

	lesson, err := h.complete.Handle(ctx, CompleteActivityCommand{UserID: user, ActivityID: apptest.Lesson})
	require.NoError(t, err)
	assert.Equal(t, 0, lesson.Outcome.Score)
	assert.Equal(t, apptest.LessonXP, lesson.Outcome.XPEarned)
	assert.True(t, lesson.Outcome.CountsForStreak)

	practice, err := h.complete.Handle(ctx, CompleteActivityCommand{UserID: user, ActivityID: apptest.Practice})
	require.NoError(t, err)
	assert.Equal(t, completion.StatusCompleted, practice.Record.Status)
	assert.False(t, practice.Outcome.CountsForStreak)
}

func TestReviewMistake(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	_, err := h.start.Handle(ctx, StartActivityCommand{UserID: user, ActivityID: apptest.Practice})
	require.NoError(t, err)
	h.answer(t, apptest.Practice, "q1", "3")
	_, err = h.complete.Handle(ctx, CompleteActivityCommand{UserID: user, ActivityID: apptest.Practice})
	require.NoError(t, err)

	record, err := h.review.Handle(ctx, ReviewMistakeCommand{UserID: user, ActivityID: apptest.Practice, QuestionID: "q1", Recalled: true})
	require.NoError(t, err)
	require.NotNil(t, record.Mistakes[0].ReviewedAt)
	assert.Equal(t, completion.StatusCompleted, record.Status)

	due, err := h.fx.Reviews.DueForReview(ctx, user, h.fx.Clock.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	_, err = h.review.Handle(ctx, ReviewMistakeCommand{UserID: user, ActivityID: apptest.Practice, QuestionID: "q2"})
	assert.ErrorIs(t, err, shared.ErrMistakeNotFound)
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak
// ═══════════════════════════════════════════════════════════════════════════

func TestRegisterActivity_Continuity(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	var last *streak.RegisterResult
	for day := 0; day < 3; day++ {
		res, err := h.register.Handle(ctx, RegisterActivityCommand{UserID: user})
		require.NoError(t, err)
		last = res
		h.fx.Clock.Advance(24 * time.Hour)
	}
	assert.Equal(t, 3, last.Streak)
	assert.True(t, last.MilestoneHit)
	assert.Equal(t, 3, last.MilestoneDay)

	// Та же дата ещё раз: серия не меняется, веха не повторяется.
	h.fx.Clock.Advance(-24 * time.Hour)
	res, err := h.register.Handle(ctx, RegisterActivityCommand{UserID: user})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Streak)
	assert.False(t, res.MilestoneHit)

	state, err := h.fx.Streaks.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 4, state.TotalActivitiesCompleted)
	require.Len(t, state.Milestones, 1)
	assert.Len(t, h.fx.Events.OfType(shared.EventStreakMilestone), 1)

	counts, err := h.fx.Streaks.DailyCounts(ctx, user, apptest.Start.AddDate(0, 0, -1), apptest.Start.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, 2, counts[2].Count)
}

func TestRegisterActivity_BreakAndRecover(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	for day := 0; day < 2; day++ {
		_, err := h.register.Handle(ctx, RegisterActivityCommand{UserID: user})
		require.NoError(t, err)
		h.fx.Clock.Advance(24 * time.Hour)
	}

	// Пропуск: последний день D+1, следующий D+4.
	h.fx.Clock.Advance(48 * time.Hour)
	res, err := h.register.Handle(ctx, RegisterActivityCommand{UserID: user})
	require.NoError(t, err)
	assert.True(t, res.Broken)
	assert.Equal(t, 2, res.PreviousStreak)
	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.RecoveryAvailable)
	require.Len(t, h.fx.Events.OfType(shared.EventStreakBroken), 1)

	state, err := h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: FreezeActionRecover})
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentStreak)
	assert.Nil(t, state.RecoveryWindowEnd)
	assert.Len(t, h.fx.Events.OfType(shared.EventStreakRecovered), 1)

	_, err = h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: FreezeActionRecover})
	assert.ErrorIs(t, err, shared.ErrNoRecoveryWindow)
}

func TestManageFreeze(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	_, err := h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: FreezeActionUse})
	assert.ErrorIs(t, err, shared.ErrNoFreezesAvailable)

	_, err = h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: FreezeActionPurchase})
	assert.ErrorIs(t, err, shared.ErrInvalidFreezeCount)

	_, err = h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: "melt"})
	assert.True(t, shared.IsValidation(err))

	state, err := h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: FreezeActionPurchase, Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, state.FreezesAvailable)

	state, err = h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: FreezeActionUse})
	require.NoError(t, err)
	assert.Equal(t, 1, state.FreezesAvailable)
	assert.Len(t, state.FreezeUsedDates, 1)

	// Новая серия равна нулю, значит окно можно открыть.
	state, err = h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: FreezeActionStartRecovery})
	require.NoError(t, err)
	require.NotNil(t, state.RecoveryWindowEnd)

	h.fx.Clock.Advance(49 * time.Hour)
	_, err = h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: FreezeActionRecover})
	assert.ErrorIs(t, err, shared.ErrRecoveryExpired)

	_, err = h.register.Handle(ctx, RegisterActivityCommand{UserID: user})
	require.NoError(t, err)
	_, err = h.freeze.Handle(ctx, ManageFreezeCommand{UserID: user, Action: FreezeActionStartRecovery})
	assert.ErrorIs(t, err, shared.ErrStreakNotBroken)
}

// ═══════════════════════════════════════════════════════════════════════════
// Journey
// ═══════════════════════════════════════════════════════════════════════════

func TestUnlockNext_LinearGate(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	res, err := h.unlock.Handle(ctx, UnlockNextCommand{UserID: user})
	require.NoError(t, err)
	assert.False(t, res.Unlocked)
	assert.Equal(t, []string{apptest.Lesson}, res.Journey.Unlocked)

	_, err = h.record.Handle(ctx, RecordJourneyCompletionCommand{
		UserID:     user,
		Completion: journey.CompletedActivity{ActivityID: apptest.Lesson, CompletedAt: h.fx.Clock.Now(), XPEarned: apptest.LessonXP},
	})
	require.NoError(t, err)

	res, err = h.unlock.Handle(ctx, UnlockNextCommand{UserID: user})
	require.NoError(t, err)
	assert.True(t, res.Unlocked)
	assert.Equal(t, apptest.Practice, res.UnlockedID)

	res, err = h.unlock.Handle(ctx, UnlockNextCommand{UserID: user})
	require.NoError(t, err)
	assert.False(t, res.Unlocked)

	state, err := h.fx.Journeys.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{apptest.Lesson, apptest.Practice}, state.Unlocked)
	assert.Len(t, h.fx.Events.OfType(shared.EventActivityUnlocked), 1)
}

func TestSwitchJourneyType(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	_, err := h.switcher.Handle(ctx, SwitchJourneyTypeCommand{UserID: user, Type: "random"})
	assert.ErrorIs(t, err, shared.ErrInvalidType)

	res, err := h.switcher.Handle(ctx, SwitchJourneyTypeCommand{UserID: user, Type: "flexible"})
	require.NoError(t, err)
	assert.Equal(t, journey.TypeFlexible, res.Journey.Type)
	assert.Equal(t, []string{apptest.Practice}, res.Opened)
	assert.ElementsMatch(t, []string{apptest.Lesson, apptest.Practice}, res.Journey.Unlocked)

	// Flexible: открытие не ограничено числом выполненных.
	next, err := h.unlock.Handle(ctx, UnlockNextCommand{UserID: user})
	require.NoError(t, err)
	assert.True(t, next.Unlocked)
	assert.Equal(t, apptest.Quiz, next.UnlockedID)

	assert.Len(t, h.fx.Events.OfType(shared.EventActivityUnlocked), 2)
}

func TestSetDailyGoal(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	_, err := h.goal.Handle(ctx, SetDailyGoalCommand{UserID: user, Minutes: 5})
	assert.ErrorIs(t, err, shared.ErrInvalidRange)
	_, err = h.goal.Handle(ctx, SetDailyGoalCommand{UserID: user, Minutes: 121})
	assert.True(t, shared.IsValidation(err))

	state, err := h.goal.Handle(ctx, SetDailyGoalCommand{UserID: user, Minutes: 45})
	require.NoError(t, err)
	assert.Equal(t, 45, state.DailyGoalMinutes)

	stored, err := h.fx.Journeys.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 45, stored.DailyGoalMinutes)
}

func TestRecordJourneyCompletion_LevelAndRedelivery(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	at := h.fx.Clock.Now()

	cmd := RecordJourneyCompletionCommand{
		UserID:     user,
		Completion: journey.CompletedActivity{ActivityID: apptest.Lesson, CompletedAt: at, XPEarned: 120},
	}
	res, err := h.record.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 2, res.NewLevel)

	res, err = h.record.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	state, err := h.fx.Journeys.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 120, state.TotalXP)
	assert.Len(t, state.Completed, 1)
	assert.Len(t, h.fx.Events.OfType(shared.EventLevelUp), 1)
}
