package memory

import (
	"context"
	"sync"

	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// JourneyRepository implements journey.Repository.
type JourneyRepository struct {
	mu       sync.RWMutex
	journeys map[string]*journey.State
}

// NewJourneyRepository creates an empty repository.
func NewJourneyRepository() *JourneyRepository {
	return &JourneyRepository{journeys: make(map[string]*journey.State)}
}

// Get returns the user's journey.
func (r *JourneyRepository) Get(_ context.Context, userID string) (*journey.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.journeys[userID]
	if !ok {
		return nil, shared.ErrJourneyNotFound
	}
	return cloneJourney(s), nil
}

// Save upserts the journey.
func (r *JourneyRepository) Save(_ context.Context, state *journey.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.journeys[state.UserID] = cloneJourney(state)
	return nil
}

func cloneJourney(s *journey.State) *journey.State {
	c := *s
	c.Completed = append([]journey.CompletedActivity{}, s.Completed...)
	c.Unlocked = append([]string{}, s.Unlocked...)
	c.WeeklyProgress = append([]journey.WeekProgress{}, s.WeeklyProgress...)
	if s.GoalDay != nil {
		t := *s.GoalDay
		c.GoalDay = &t
	}
	return &c
}
