package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-journey/internal/application/apptest"
	"github.com/alem-hub/learning-journey/internal/application/command"
	"github.com/alem-hub/learning-journey/internal/application/saga"
	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/internal/domain/streak"
	"github.com/alem-hub/learning-journey/pkg/timeutil"
)

type failingResolver struct{}

func (failingResolver) Ensure(context.Context, string) (*journey.State, []catalog.Activity, error) {
	return nil, nil, errors.New("journey store unavailable")
}

type flow struct {
	fx       *apptest.Fixture
	start    *command.StartActivityHandler
	submit   *command.SubmitAnswerHandler
	complete *command.CompleteActivityHandler
}

func newFlow(t *testing.T, resolver command.JourneyResolver) *flow {
	fx := apptest.New(t)
	if resolver == nil {
		resolver = saga.NewEnrollmentSaga(fx.Catalog, fx.Catalog, fx.Journeys, fx.Clock, fx.Log)
	}

	h := NewOnActivityCompletedHandler(
		command.NewRecordJourneyCompletionHandler(resolver, fx.Journeys, fx.Locker, fx.Bus, timeutil.AlmatyTZ, fx.Log),
		command.NewRegisterActivityHandler(fx.Streaks, fx.Locker, fx.Bus, fx.Clock, streak.DefaultPolicy(), fx.Log),
		fx.Log,
	)
	require.NoError(t, h.Subscribe(fx.Bus))
	require.NoError(t, NewAuditHandler(fx.Log).Subscribe(fx.Bus))

	return &flow{
		fx:       fx,
		start:    command.NewStartActivityHandler(fx.Catalog, fx.Records, fx.Locker, fx.Bus, fx.Clock, fx.Log),
		submit:   command.NewSubmitAnswerHandler(fx.Catalog, fx.Records, fx.Reviews, fx.Locker, fx.Clock, fx.Log),
		complete: command.NewCompleteActivityHandler(fx.Catalog, fx.Records, fx.Locker, fx.Bus, fx.Clock, fx.Log),
	}
}

func (f *flow) finish(t *testing.T, activityID string, answers map[string]string) *command.CompleteActivityResult {
	t.Helper()
	ctx := context.Background()
	_, err := f.start.Handle(ctx, command.StartActivityCommand{UserID: "u1", ActivityID: activityID})
	require.NoError(t, err)
	for qid, value := range answers {
		_, err := f.submit.Handle(ctx, command.SubmitAnswerCommand{
			UserID: "u1", ActivityID: activityID, QuestionID: qid, Value: value, TimeSpent: 10 * time.Minute,
		})
		require.NoError(t, err)
	}
	res, err := f.complete.Handle(ctx, command.CompleteActivityCommand{UserID: "u1", ActivityID: activityID})
	require.NoError(t, err)
	return res
}

func TestCompletionFansOutToJourneyAndStreak(t *testing.T) {
	f := newFlow(t, nil)
	ctx := context.Background()

	f.finish(t, apptest.Lesson, nil)
	f.finish(t, apptest.Practice, map[string]string{"q1": "4", "q2": "7"})

	j, err := f.fx.Journeys.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, apptest.LessonXP+15, j.TotalXP)
	assert.Len(t, j.Completed, 2)
	assert.Contains(t, j.Unlocked, apptest.Practice)
	assert.Equal(t, 2, j.CurrentWeek)
	assert.Equal(t, 20, j.MinutesToday)

	s, err := f.fx.Streaks.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 2, s.TotalActivitiesCompleted)
}

func TestCompletionWithoutAnswersSkipsStreak(t *testing.T) {
	f := newFlow(t, nil)

	res := f.finish(t, apptest.Practice, nil)
	assert.False(t, res.Outcome.CountsForStreak)

	_, err := f.fx.Streaks.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, shared.ErrStreakNotFound)

	j, err := f.fx.Journeys.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, j.Completed, 1)
}

func TestJourneyFailureDoesNotBlockStreak(t *testing.T) {
	f := newFlow(t, failingResolver{})

	res := f.finish(t, apptest.Lesson, nil)
	assert.True(t, res.Outcome.CountsForStreak)

	s, err := f.fx.Streaks.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentStreak)

	record, err := f.fx.Records.Get(context.Background(), "u1", apptest.Lesson)
	require.NoError(t, err)
	assert.True(t, record.IsTerminal())
}

func TestUpdateJourney_RejectsForeignEvent(t *testing.T) {
	h := NewOnActivityCompletedHandler(nil, nil, nil)
	err := h.UpdateJourney(context.Background(), shared.NewLevelUpEvent("u1", 1, 2, 100, time.Now()))
	assert.Error(t, err)
}
