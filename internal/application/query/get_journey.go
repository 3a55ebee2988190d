package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET JOURNEY / GET JOURNEY PATH
// ══════════════════════════════════════════════════════════════════════════════

// JourneyResolver returns a user's journey, creating it on first access.
type JourneyResolver interface {
	Ensure(ctx context.Context, userID string) (*journey.State, []catalog.Activity, error)
}

// GetJourneyQuery requests a user's journey.
type GetJourneyQuery struct {
	UserID string
}

// GetJourneyHandler handles GetJourneyQuery. Existing journeys are read from
// journeys (possibly a cache); a missing one is created through the resolver,
// enrolling the user in their active plan.
type GetJourneyHandler struct {
	journeys journey.Repository
	resolver JourneyResolver
}

// NewGetJourneyHandler creates a new handler.
func NewGetJourneyHandler(journeys journey.Repository, resolver JourneyResolver) *GetJourneyHandler {
	return &GetJourneyHandler{journeys: journeys, resolver: resolver}
}

// Handle executes the query.
func (h *GetJourneyHandler) Handle(ctx context.Context, q GetJourneyQuery) (*journey.State, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("get_journey: user_id is required: %w", shared.ErrInvalidInput)
	}
	state, err := h.journeys.Get(ctx, q.UserID)
	if err == nil {
		return state, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("get_journey: %w", err)
	}

	state, _, err = h.resolver.Ensure(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_journey: %w", err)
	}
	return state, nil
}

// GetJourneyPathQuery requests the ordered path through the user's plan.
type GetJourneyPathQuery struct {
	UserID string
}

// GetJourneyPathHandler handles GetJourneyPathQuery. Unlike GetJourney it
// never creates a journey.
type GetJourneyPathHandler struct {
	journeys journey.Repository
	catalog  catalog.Catalog
	records  completion.Repository
}

// NewGetJourneyPathHandler creates a new handler.
func NewGetJourneyPathHandler(journeys journey.Repository, cat catalog.Catalog, records completion.Repository) *GetJourneyPathHandler {
	return &GetJourneyPathHandler{journeys: journeys, catalog: cat, records: records}
}

// Handle executes the query. Returns shared.ErrJourneyNotFound if the
// journey has not been created yet.
func (h *GetJourneyPathHandler) Handle(ctx context.Context, q GetJourneyPathQuery) ([]journey.PathEntry, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("get_journey_path: user_id is required: %w", shared.ErrInvalidInput)
	}

	state, err := h.journeys.Get(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_journey_path: %w", err)
	}
	activities, err := h.catalog.ListActivities(ctx, state.PlanID)
	if err != nil {
		return nil, fmt.Errorf("get_journey_path: failed to list activities: %w", err)
	}
	list, err := h.records.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_journey_path: failed to list records: %w", err)
	}

	records := make(map[string]*completion.Record, len(list))
	for _, r := range list {
		records[r.ActivityID] = r
	}
	return state.Path(activities, records), nil
}
