package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/timeutil"
)

// day returns 10:00 Almaty time on 2025-03-(10+n).
func day(n int) time.Time {
	return time.Date(2025, 3, 10+n, 10, 0, 0, 0, timeutil.AlmatyTZ)
}

func TestRegisterActivity_ThreeConsecutiveDays(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))

	r1 := s.RegisterActivity(day(0), p)
	r2 := s.RegisterActivity(day(1), p)
	r3 := s.RegisterActivity(day(2), p)

	assert.Equal(t, 1, r1.Streak)
	assert.Equal(t, 2, r2.Streak)
	assert.Equal(t, 3, r3.Streak)
	assert.True(t, r3.MilestoneHit)
	assert.Equal(t, 3, r3.MilestoneDay)

	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 3, s.LongestStreak)
	require.Len(t, s.Milestones, 1)
	assert.Equal(t, 3, s.Milestones[0].Days)
}

func TestRegisterActivity_SameDayOnlyCountsLifetime(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))

	s.RegisterActivity(day(0), p)
	r := s.RegisterActivity(day(0).Add(5*time.Hour), p)

	assert.Equal(t, 1, r.Streak)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 2, s.TotalActivitiesCompleted)
}

func TestRegisterActivity_DayBoundaryUsesReferenceZone(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))

	// 23:30 and 00:30 Almaty are different days even though they are one hour apart.
	late := time.Date(2025, 3, 10, 23, 30, 0, 0, timeutil.AlmatyTZ)
	early := late.Add(time.Hour)

	s.RegisterActivity(late, p)
	r := s.RegisterActivity(early.UTC(), p)

	assert.Equal(t, 2, r.Streak)
}

func TestRegisterActivity_BreakWithoutFreeze(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))

	s.RegisterActivity(day(0), p)
	r := s.RegisterActivity(day(3), p)

	assert.True(t, r.Broken)
	assert.True(t, r.RecoveryAvailable)
	assert.Equal(t, 1, r.PreviousStreak)
	assert.Equal(t, 1, s.CurrentStreak)
	require.NotNil(t, s.RecoveryWindowEnd)
	assert.Equal(t, day(3).Add(48*time.Hour), *s.RecoveryWindowEnd)
}

func TestRegisterActivity_FreezeInsideWindowKeepsStreak(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))
	s.RegisterActivity(day(0), p)
	s.RegisterActivity(day(1), p)
	require.NoError(t, s.PurchaseFreeze(1, day(1)))

	end := day(4)
	s.RecoveryWindowEnd = &end

	r := s.RegisterActivity(day(3), p)

	assert.False(t, r.Broken)
	assert.True(t, r.RecoveryAvailable)
	assert.Equal(t, 2, r.Streak)
	assert.Equal(t, 2, s.CurrentStreak)
}

func TestRegisterActivity_MilestoneRecordedOnce(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))
	for i := 0; i < 3; i++ {
		s.RegisterActivity(day(i), p)
	}
	// Break and rebuild to 3 again.
	s.RegisterActivity(day(10), p)
	s.RegisterActivity(day(11), p)
	r := s.RegisterActivity(day(12), p)

	assert.Equal(t, 3, r.Streak)
	assert.False(t, r.MilestoneHit)
	assert.Len(t, s.Milestones, 1)
}

func TestUseAndPurchaseFreeze(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))

	assert.ErrorIs(t, s.UseFreeze(day(0), p), shared.ErrNoFreezesAvailable)
	assert.ErrorIs(t, s.PurchaseFreeze(0, day(0)), shared.ErrInvalidFreezeCount)

	require.NoError(t, s.PurchaseFreeze(2, day(0)))
	require.NoError(t, s.UseFreeze(day(1), p))

	assert.Equal(t, 1, s.FreezesAvailable)
	require.Len(t, s.FreezeUsedDates, 1)
	assert.Equal(t, timeutil.StartOfDay(day(1), timeutil.AlmatyTZ), s.FreezeUsedDates[0])
}

func TestStartRecovery_RequiresBrokenStreak(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))
	s.RegisterActivity(day(0), p)

	assert.ErrorIs(t, s.StartRecovery(day(0), p), shared.ErrStreakNotBroken)

	s.CurrentStreak = 0
	require.NoError(t, s.StartRecovery(day(2), p))
	require.NotNil(t, s.RecoveryWindowEnd)
}

func TestRecover_RestoresLongestStreak(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))
	for i := 0; i < 5; i++ {
		s.RegisterActivity(day(i), p)
	}
	s.RegisterActivity(day(8), p) // broken, restarts at 1
	require.Equal(t, 1, s.CurrentStreak)

	require.NoError(t, s.Recover(day(9), p))

	assert.Equal(t, 5, s.CurrentStreak)
	assert.Nil(t, s.RecoveryWindowEnd)
	require.NotNil(t, s.LastActivityDate)
	assert.Zero(t, timeutil.DaysBetween(*s.LastActivityDate, day(9), timeutil.AlmatyTZ))
}

func TestRecover_Errors(t *testing.T) {
	p := DefaultPolicy()
	s := NewState("u", day(0))

	assert.ErrorIs(t, s.Recover(day(0), p), shared.ErrNoRecoveryWindow)

	require.NoError(t, s.StartRecovery(day(0), p))
	err := s.Recover(day(3), p)
	assert.ErrorIs(t, err, shared.ErrRecoveryExpired)
	assert.True(t, shared.IsInvalidState(err))
}

func TestFillDays(t *testing.T) {
	loc := timeutil.AlmatyTZ
	days := timeutil.LastNDays(day(2), 3, loc)
	counts := []DailyCount{{Day: timeutil.StartOfDay(day(1), loc), Count: 4}}

	filled := FillDays(days, counts, loc)

	require.Len(t, filled, 3)
	assert.Equal(t, 0, filled[0].Count)
	assert.Equal(t, 4, filled[1].Count)
	assert.Equal(t, 0, filled[2].Count)
}
