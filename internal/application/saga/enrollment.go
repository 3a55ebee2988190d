// Package saga contains business processes that orchestrate several
// collaborators in a coordinated manner.
package saga

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT SAGA
// Lazy creation of a journey on first access.
// Flow: Load Journey → (missing) Resolve Active Plan → List Plan Activities →
//
//	Create Journey → Save
//
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentSaga resolves a user's journey, enrolling the user in their active
// plan when no journey exists yet. Concurrent first accesses for the same user
// are collapsed into one creation.
type EnrollmentSaga struct {
	plans    catalog.PlanProvider
	catalog  catalog.Catalog
	journeys journey.Repository
	clock    shared.Clock
	log      *logger.Logger

	group singleflight.Group
}

// NewEnrollmentSaga creates a new EnrollmentSaga.
func NewEnrollmentSaga(
	plans catalog.PlanProvider,
	cat catalog.Catalog,
	journeys journey.Repository,
	clock shared.Clock,
	log *logger.Logger,
) *EnrollmentSaga {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EnrollmentSaga{
		plans:    plans,
		catalog:  cat,
		journeys: journeys,
		clock:    clock,
		log:      log.With(logger.String("saga", "enrollment")),
	}
}

// Ensure returns the user's journey together with the activities of its plan.
// The returned state is owned by the caller.
func (s *EnrollmentSaga) Ensure(ctx context.Context, userID string) (*journey.State, []catalog.Activity, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("enrollment: user_id is required: %w", shared.ErrInvalidInput)
	}

	state, err := s.journeys.Get(ctx, userID)
	if shared.IsNotFound(err) {
		// Все конкурентные вызовы ждут одного создания, затем читают
		// собственную копию из хранилища.
		_, err, _ = s.group.Do(userID, func() (interface{}, error) {
			return nil, s.enroll(ctx, userID)
		})
		if err != nil {
			return nil, nil, err
		}
		state, err = s.journeys.Get(ctx, userID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("enrollment: failed to load journey: %w", err)
	}

	activities, err := s.catalog.ListActivities(ctx, state.PlanID)
	if err != nil {
		return nil, nil, fmt.Errorf("enrollment: failed to list activities: %w", err)
	}
	return state, activities, nil
}

// enroll creates and stores the journey unless another caller already did.
func (s *EnrollmentSaga) enroll(ctx context.Context, userID string) error {
	if _, err := s.journeys.Get(ctx, userID); err == nil {
		return nil
	} else if !shared.IsNotFound(err) {
		return fmt.Errorf("enrollment: failed to load journey: %w", err)
	}

	plan, err := s.plans.ActivePlan(ctx, userID)
	if err != nil {
		return fmt.Errorf("enrollment: %w", err)
	}
	activities, err := s.catalog.ListActivities(ctx, plan.ID)
	if err != nil {
		return fmt.Errorf("enrollment: failed to list activities: %w", err)
	}

	state := journey.NewState(userID, plan, activities, s.clock.Now())
	if err := s.journeys.Save(ctx, state); err != nil {
		return fmt.Errorf("enrollment: failed to save journey: %w", err)
	}

	s.log.Info("journey created",
		logger.UserID(userID),
		logger.String("plan_id", plan.ID),
		logger.Int("activities", len(activities)),
	)
	return nil
}
