package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/internal/domain/streak"
)

// StreakRepository implements streak.Repository.
type StreakRepository struct {
	mu     sync.RWMutex
	states map[string]*streak.State
	daily  map[string]map[int64]int // userID -> day start (unix) -> count
}

// NewStreakRepository creates an empty repository.
func NewStreakRepository() *StreakRepository {
	return &StreakRepository{
		states: make(map[string]*streak.State),
		daily:  make(map[string]map[int64]int),
	}
}

// Get returns the user's streak state.
func (r *StreakRepository) Get(_ context.Context, userID string) (*streak.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.states[userID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	return cloneStreak(s), nil
}

// Save upserts the state.
func (r *StreakRepository) Save(_ context.Context, state *streak.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state.UserID] = cloneStreak(state)
	return nil
}

// IncrementDailyCount bumps the counter of the given day start.
func (r *StreakRepository) IncrementDailyCount(_ context.Context, userID string, day time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	days, ok := r.daily[userID]
	if !ok {
		days = make(map[int64]int)
		r.daily[userID] = days
	}
	days[day.Unix()]++
	return nil
}

// DailyCounts returns counters for day starts in [from, to], oldest first.
func (r *StreakRepository) DailyCounts(_ context.Context, userID string, from, to time.Time) ([]streak.DailyCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]streak.DailyCount, 0)
	for unix, count := range r.daily[userID] {
		day := time.Unix(unix, 0).In(from.Location())
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, streak.DailyCount{Day: day, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func cloneStreak(s *streak.State) *streak.State {
	c := *s
	if s.LastActivityDate != nil {
		t := *s.LastActivityDate
		c.LastActivityDate = &t
	}
	if s.RecoveryWindowEnd != nil {
		t := *s.RecoveryWindowEnd
		c.RecoveryWindowEnd = &t
	}
	c.FreezeUsedDates = append([]time.Time{}, s.FreezeUsedDates...)
	c.Milestones = append([]streak.Milestone{}, s.Milestones...)
	return &c
}
