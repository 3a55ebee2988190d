package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// UnlockNextCommand asks for the next activity of the plan to be opened.
type UnlockNextCommand struct {
	UserID string
}

// Validate validates the command.
func (c UnlockNextCommand) Validate() error {
	if c.UserID == "" {
		return required("unlock_next", "user_id")
	}
	return nil
}

// UnlockNextResult reports the opened activity, if any.
type UnlockNextResult struct {
	UnlockedID string
	Unlocked   bool
	Journey    *journey.State
}

// UnlockNextHandler handles UnlockNextCommand.
type UnlockNextHandler struct {
	resolver  JourneyResolver
	journeys  journey.Repository
	locker    completion.Locker
	publisher shared.EventPublisher
	clock     shared.Clock
	log       *logger.Logger
}

// NewUnlockNextHandler creates a new UnlockNextHandler.
func NewUnlockNextHandler(
	resolver JourneyResolver,
	journeys journey.Repository,
	locker completion.Locker,
	publisher shared.EventPublisher,
	clock shared.Clock,
	log *logger.Logger,
) *UnlockNextHandler {
	return &UnlockNextHandler{
		resolver:  resolver,
		journeys:  journeys,
		locker:    locker,
		publisher: publisher,
		clock:     orSystemClock(clock),
		log:       orNop(log).With(logger.String("handler", "unlock_next")),
	}
}

// Handle opens at most one activity. Under the linear policy nothing opens
// until every unlocked activity has been completed.
func (h *UnlockNextHandler) Handle(ctx context.Context, cmd UnlockNextCommand) (*UnlockNextResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	result := &UnlockNextResult{}
	err := withLock(ctx, h.locker, journeyLockKey(cmd.UserID), func() error {
		state, activities, err := h.resolver.Ensure(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		result.Journey = state

		result.UnlockedID, result.Unlocked = state.UnlockNext(activities, now)
		if !result.Unlocked {
			return nil
		}
		if err := h.journeys.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to save journey: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unlock_next: %w", err)
	}

	if result.Unlocked {
		h.log.Info("activity unlocked",
			logger.UserID(cmd.UserID),
			logger.ActivityID(result.UnlockedID),
		)
		publishAll(ctx, h.publisher, h.log, shared.NewActivityUnlockedEvent(cmd.UserID, result.UnlockedID, now))
	}
	return result, nil
}
