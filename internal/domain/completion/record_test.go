package completion

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func practice(questions, reward int) catalog.Activity {
	return catalog.Activity{
		ID:            "act-1",
		PlanID:        "plan-1",
		Week:          1,
		DayOfWeek:     1,
		Type:          catalog.TypePractice,
		SubjectID:     "math",
		QuestionCount: questions,
		XPReward:      reward,
	}
}

func question(id, answer string) catalog.Question {
	return catalog.Question{ID: id, ActivityID: "act-1", TopicID: "algebra", CorrectValue: answer, Explanation: "because"}
}

func newRecord(t *testing.T, act catalog.Activity) *Record {
	t.Helper()
	r, err := NewRecord("rec-1", "user-1", act, t0)
	require.NoError(t, err)
	return r
}

func TestNewRecord_StartsInProgress(t *testing.T) {
	r := newRecord(t, practice(12, 10))

	assert.Equal(t, StatusInProgress, r.Status)
	assert.Equal(t, t0, r.StartedAt)
	assert.Equal(t, 12, r.MaxScore)
	assert.Equal(t, "math", r.SubjectID)
	assert.Nil(t, r.Score)
}

func TestRecord_StartIsIdempotent(t *testing.T) {
	r := newRecord(t, practice(3, 10))

	changed, err := r.Start(t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, t0, r.StartedAt)

	r.Status = StatusLocked
	changed, err = r.Start(t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusInProgress, r.Status)
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(StatusLocked, StatusUnlocked))
	assert.True(t, CanTransition(StatusLocked, StatusInProgress))
	assert.True(t, CanTransition(StatusUnlocked, StatusInProgress))
	assert.True(t, CanTransition(StatusInProgress, StatusCompleted))
	assert.True(t, CanTransition(StatusInProgress, StatusPerfect))

	assert.False(t, CanTransition(StatusCompleted, StatusInProgress))
	assert.False(t, CanTransition(StatusPerfect, StatusCompleted))
	assert.False(t, CanTransition(StatusInProgress, StatusLocked))
	assert.False(t, CanTransition(StatusUnlocked, StatusCompleted))
}

func TestSubmitAnswer_AttemptNumbersAndMistakes(t *testing.T) {
	r := newRecord(t, practice(2, 10))
	q1 := question("q1", "4")

	res, mistake, err := r.SubmitAnswer(q1, "5", 30*time.Second, t0)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	require.NotNil(t, mistake)
	assert.Equal(t, "5", mistake.IncorrectValue)
	assert.Equal(t, "4", mistake.CorrectValue)
	assert.Equal(t, "4", res.Feedback.CorrectValue)
	assert.Equal(t, Progress{Answered: 1, Total: 2}, res.Progress)

	res, mistake, err = r.SubmitAnswer(q1, "4", 10*time.Second, t0)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Nil(t, mistake)
	assert.Equal(t, 1, res.Progress.Answered)

	require.Len(t, r.Answers, 2)
	assert.Equal(t, 1, r.Answers[0].AttemptNumber)
	assert.Equal(t, 2, r.Answers[1].AttemptNumber)
	assert.Len(t, r.Mistakes, 1)
}

func TestSubmitAnswer_RejectsTerminalRecord(t *testing.T) {
	r := newRecord(t, practice(1, 10))
	_, err := r.Complete(practice(1, 10), t0)
	require.NoError(t, err)

	_, _, err = r.SubmitAnswer(question("q1", "a"), "a", time.Second, t0)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestComplete_PerfectBonus(t *testing.T) {
	act := practice(12, 10)
	r := newRecord(t, act)
	for i := 0; i < 12; i++ {
		q := question(fmt.Sprintf("q%d", i), "ok")
		_, _, err := r.SubmitAnswer(q, "ok", 20*time.Second, t0)
		require.NoError(t, err)
	}

	out, err := r.Complete(act, t0.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, out.IsPerfect)
	assert.Equal(t, 15, out.XPEarned)
	assert.Equal(t, 100, out.Score)
	assert.Equal(t, StatusPerfect, r.Status)
	assert.Equal(t, 4*time.Minute, r.TimeSpent)
	assert.True(t, r.CountsForStreak)
}

func TestComplete_ScoreRounding(t *testing.T) {
	act := practice(3, 10)
	r := newRecord(t, act)
	_, _, _ = r.SubmitAnswer(question("q1", "a"), "a", time.Second, t0)
	_, _, _ = r.SubmitAnswer(question("q2", "b"), "b", time.Second, t0)
	_, _, _ = r.SubmitAnswer(question("q3", "c"), "x", time.Second, t0)

	out, err := r.Complete(act, t0)
	require.NoError(t, err)

	assert.Equal(t, 67, out.Score)
	assert.False(t, out.IsPerfect)
	assert.Equal(t, 10, out.XPEarned)
	assert.Equal(t, StatusCompleted, r.Status)
}

func TestComplete_NoAnswersScoresZero(t *testing.T) {
	act := practice(5, 10)
	r := newRecord(t, act)

	out, err := r.Complete(act, t0)
	require.NoError(t, err)

	assert.Equal(t, 0, out.Score)
	assert.False(t, out.IsPerfect)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.False(t, r.CountsForStreak)
}

func TestComplete_LessonWithoutQuestionsCountsForStreak(t *testing.T) {
	act := practice(0, 5)
	act.Type = catalog.TypeLesson
	r := newRecord(t, act)

	_, err := r.Complete(act, t0)
	require.NoError(t, err)
	assert.True(t, r.CountsForStreak)
}

func TestComplete_SecondCallIsRejected(t *testing.T) {
	act := practice(1, 10)
	r := newRecord(t, act)
	_, _, _ = r.SubmitAnswer(question("q1", "a"), "a", time.Second, t0)
	_, err := r.Complete(act, t0)
	require.NoError(t, err)

	_, err = r.Complete(act, t0.Add(time.Minute))
	assert.ErrorIs(t, err, shared.ErrAlreadyCompleted)
	assert.Equal(t, 100, r.ScoreValue())
	assert.Equal(t, 15, r.XPEarned)
}

func TestScoreBound(t *testing.T) {
	for total := 0; total <= 20; total++ {
		for correct := 0; correct <= total; correct++ {
			s := shared.NewScore(correct, total).Int()
			assert.GreaterOrEqual(t, s, 0)
			assert.LessOrEqual(t, s, 100)
			if total == 0 {
				assert.Equal(t, 0, s)
			}
		}
	}
}

func TestReviewMistake_AllowedOnTerminalRecord(t *testing.T) {
	act := practice(1, 10)
	r := newRecord(t, act)
	_, _, _ = r.SubmitAnswer(question("q1", "a"), "b", time.Second, t0)
	_, err := r.Complete(act, t0)
	require.NoError(t, err)

	require.NoError(t, r.ReviewMistake("q1", t0.Add(24*time.Hour)))
	require.NotNil(t, r.Mistakes[0].ReviewedAt)

	assert.ErrorIs(t, r.ReviewMistake("missing", t0), shared.ErrMistakeNotFound)
}
