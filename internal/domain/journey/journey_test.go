package journey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/timeutil"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, timeutil.AlmatyTZ)

func plan() catalog.Plan {
	return catalog.Plan{ID: "plan-1", Name: "SAT prep", Weeks: 2}
}

// activities are deliberately out of catalog order.
func activities() []catalog.Activity {
	return []catalog.Activity{
		{ID: "w1d2", Week: 1, DayOfWeek: 2, Order: 1, Type: catalog.TypePractice, Required: true, XPReward: 20},
		{ID: "w2d1", Week: 2, DayOfWeek: 1, Order: 1, Type: catalog.TypeLesson, Required: true, XPReward: 10},
		{ID: "w1d1", Week: 1, DayOfWeek: 1, Order: 1, Type: catalog.TypeLesson, Required: true, XPReward: 10},
		{ID: "w1d1b", Week: 1, DayOfWeek: 1, Order: 2, Type: catalog.TypeReview, Required: false, XPReward: 5},
	}
}

func completed(id string, xp int, at time.Time) CompletedActivity {
	return CompletedActivity{ActivityID: id, CompletedAt: at, Score: 90, XPEarned: xp, TimeSpent: 10 * time.Minute}
}

func TestNewState_UnlocksFirstActivity(t *testing.T) {
	s := NewState("u", plan(), activities(), now)

	assert.Equal(t, []string{"w1d1"}, s.Unlocked)
	assert.Equal(t, "w1d1", s.CurrentActivityID)
	assert.Equal(t, 1, s.CurrentWeek)
	assert.Equal(t, TypeLinear, s.Type)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, DefaultDailyGoal, s.DailyGoalMinutes)
	require.Len(t, s.WeeklyProgress, 2)
	assert.Equal(t, 3, s.WeeklyProgress[0].Total)
}

func TestUnlockNext_LinearIsGatedAndMonotonic(t *testing.T) {
	s := NewState("u", plan(), activities(), now)

	id, ok := s.UnlockNext(activities(), now)
	assert.False(t, ok)
	assert.Empty(t, id)

	s.RecordCompletion(completed("w1d1", 10, now), activities(), timeutil.AlmatyTZ)

	prev := len(s.Unlocked)
	id, ok = s.UnlockNext(activities(), now)
	require.True(t, ok)
	assert.Equal(t, "w1d1b", id)
	assert.Equal(t, prev+1, len(s.Unlocked))

	// Completed (1) < unlocked (2): no further unlock.
	_, ok = s.UnlockNext(activities(), now)
	assert.False(t, ok)
	assert.Equal(t, prev+1, len(s.Unlocked))
}

func TestUnlockNext_FlexibleIsUngated(t *testing.T) {
	s := NewState("u", plan(), activities(), now)
	s.Type = TypeFlexible

	first, ok := s.UnlockNext(activities(), now)
	require.True(t, ok)
	second, ok := s.UnlockNext(activities(), now)
	require.True(t, ok)

	assert.Equal(t, "w1d1b", first)
	assert.Equal(t, "w1d2", second)
}

func TestRecordCompletion_UpsertsAndAccumulatesXP(t *testing.T) {
	s := NewState("u", plan(), activities(), now)

	s.RecordCompletion(completed("w1d1", 60, now), activities(), timeutil.AlmatyTZ)
	res := s.RecordCompletion(completed("w1d1", 50, now.Add(time.Hour)), activities(), timeutil.AlmatyTZ)

	assert.Len(t, s.Completed, 1)
	assert.Equal(t, 110, s.TotalXP)
	assert.Equal(t, 2, s.Level)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 50, s.Completed[0].XPEarned)
}

func TestRecordCompletion_DuplicateDeliveryIsIgnored(t *testing.T) {
	s := NewState("u", plan(), activities(), now)
	c := completed("w1d1", 40, now)

	s.RecordCompletion(c, activities(), timeutil.AlmatyTZ)
	res := s.RecordCompletion(c, activities(), timeutil.AlmatyTZ)

	assert.True(t, res.Duplicate)
	assert.Equal(t, 40, s.TotalXP)
}

func TestRecordCompletion_UnlocksCompletedActivity(t *testing.T) {
	s := NewState("u", plan(), activities(), now)

	s.RecordCompletion(completed("w1d2", 20, now), activities(), timeutil.AlmatyTZ)

	for _, c := range s.Completed {
		assert.True(t, s.IsUnlocked(c.ActivityID))
	}
}

func TestLevelMonotonicity(t *testing.T) {
	s := NewState("u", plan(), activities(), now)
	awards := []int{0, 35, 70, 0, 150, 1, 99, 250}
	prev := s.Level
	for i, xp := range awards {
		id := []string{"w1d1", "w1d1b", "w1d2", "w2d1"}[i%4]
		s.RecordCompletion(completed(id, xp, now.Add(time.Duration(i)*time.Minute)), activities(), timeutil.AlmatyTZ)

		assert.GreaterOrEqual(t, s.Level, prev)
		assert.Equal(t, s.TotalXP/100+1, s.Level)
		prev = s.Level
	}
}

func TestRecordCompletion_AdvancesWeekWhenRequiredDone(t *testing.T) {
	s := NewState("u", plan(), activities(), now)

	s.RecordCompletion(completed("w1d1", 10, now), activities(), timeutil.AlmatyTZ)
	assert.Equal(t, 1, s.CurrentWeek)

	res := s.RecordCompletion(completed("w1d2", 20, now), activities(), timeutil.AlmatyTZ)
	assert.True(t, res.WeekAdvanced)
	assert.Equal(t, 2, s.CurrentWeek)
}

func TestRecordCompletion_DailyGoal(t *testing.T) {
	s := NewState("u", plan(), activities(), now)
	require.NoError(t, s.SetDailyGoal(15, now))

	r1 := s.RecordCompletion(completed("w1d1", 10, now), activities(), timeutil.AlmatyTZ)
	r2 := s.RecordCompletion(completed("w1d1b", 5, now.Add(time.Hour)), activities(), timeutil.AlmatyTZ)
	r3 := s.RecordCompletion(completed("w1d2", 5, now.Add(2*time.Hour)), activities(), timeutil.AlmatyTZ)

	assert.False(t, r1.GoalMet)
	assert.True(t, r2.GoalMet)
	assert.False(t, r3.GoalMet)
	assert.Equal(t, 1, s.DailyGoalsMet)

	s.RecordCompletion(completed("w2d1", 5, now.Add(24*time.Hour)), activities(), timeutil.AlmatyTZ)
	assert.Equal(t, 10, s.MinutesToday)
}

func TestSwitchType(t *testing.T) {
	s := NewState("u", plan(), activities(), now)

	_, err := s.SwitchType("chaotic", activities(), now)
	assert.ErrorIs(t, err, shared.ErrInvalidType)

	opened, err := s.SwitchType("flexible", activities(), now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"w1d1b", "w1d2"}, opened)
	assert.ElementsMatch(t, []string{"w1d1", "w1d1b", "w1d2"}, s.Unlocked)
	assert.Equal(t, TypeFlexible, s.Type)

	_, err = s.SwitchType("linear", activities(), now)
	require.NoError(t, err)
	assert.Len(t, s.Unlocked, 3)
}

func TestSetDailyGoal_Range(t *testing.T) {
	s := NewState("u", plan(), activities(), now)

	assert.ErrorIs(t, s.SetDailyGoal(9, now), shared.ErrInvalidRange)
	assert.ErrorIs(t, s.SetDailyGoal(121, now), shared.ErrInvalidRange)
	assert.True(t, shared.IsValidation(s.SetDailyGoal(0, now)))

	require.NoError(t, s.SetDailyGoal(10, now))
	require.NoError(t, s.SetDailyGoal(120, now))
	assert.Equal(t, 120, s.DailyGoalMinutes)
}

func TestPath(t *testing.T) {
	s := NewState("u", plan(), activities(), now)
	s.RecordCompletion(completed("w1d1", 10, now), activities(), timeutil.AlmatyTZ)
	s.UnlockNext(activities(), now)

	score := 90
	records := map[string]*completion.Record{
		"w1d1": {ActivityID: "w1d1", Status: completion.StatusCompleted, Score: &score},
	}

	path := s.Path(activities(), records)
	require.Len(t, path, 4)

	assert.Equal(t, "w1d1", path[0].Activity.ID)
	assert.Equal(t, completion.StatusCompleted, path[0].Status)
	assert.Equal(t, "w1d1b", path[1].Activity.ID)
	assert.Equal(t, completion.StatusUnlocked, path[1].Status)
	assert.True(t, path[1].IsCurrent)
	assert.Equal(t, completion.StatusLocked, path[2].Status)
	assert.Equal(t, completion.StatusLocked, path[3].Status)
}
