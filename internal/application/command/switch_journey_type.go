package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// SwitchJourneyTypeCommand changes the unlock policy of a journey.
type SwitchJourneyTypeCommand struct {
	UserID string

	// Type is "linear" or "flexible".
	Type string
}

// Validate validates the command.
func (c SwitchJourneyTypeCommand) Validate() error {
	if c.UserID == "" {
		return required("switch_journey_type", "user_id")
	}
	if _, err := journey.ParseType(c.Type); err != nil {
		return fmt.Errorf("switch_journey_type: %w", err)
	}
	return nil
}

// SwitchJourneyTypeResult contains the updated journey and the activities the
// switch opened.
type SwitchJourneyTypeResult struct {
	Journey *journey.State
	Opened  []string
}

// SwitchJourneyTypeHandler handles SwitchJourneyTypeCommand.
type SwitchJourneyTypeHandler struct {
	resolver  JourneyResolver
	journeys  journey.Repository
	locker    completion.Locker
	publisher shared.EventPublisher
	clock     shared.Clock
	log       *logger.Logger
}

// NewSwitchJourneyTypeHandler creates a new SwitchJourneyTypeHandler.
func NewSwitchJourneyTypeHandler(
	resolver JourneyResolver,
	journeys journey.Repository,
	locker completion.Locker,
	publisher shared.EventPublisher,
	clock shared.Clock,
	log *logger.Logger,
) *SwitchJourneyTypeHandler {
	return &SwitchJourneyTypeHandler{
		resolver:  resolver,
		journeys:  journeys,
		locker:    locker,
		publisher: publisher,
		clock:     orSystemClock(clock),
		log:       orNop(log).With(logger.String("handler", "switch_journey_type")),
	}
}

// Handle executes the switch journey type command.
func (h *SwitchJourneyTypeHandler) Handle(ctx context.Context, cmd SwitchJourneyTypeCommand) (*SwitchJourneyTypeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	result := &SwitchJourneyTypeResult{}
	err := withLock(ctx, h.locker, journeyLockKey(cmd.UserID), func() error {
		state, activities, err := h.resolver.Ensure(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		opened, err := state.SwitchType(cmd.Type, activities, now)
		if err != nil {
			return err
		}
		if err := h.journeys.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to save journey: %w", err)
		}
		result.Journey = state
		result.Opened = opened
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("switch_journey_type: %w", err)
	}

	h.log.Info("journey type switched",
		logger.UserID(cmd.UserID),
		logger.String("type", cmd.Type),
		logger.Int("opened", len(result.Opened)),
	)
	events := make([]shared.Event, 0, len(result.Opened))
	for _, id := range result.Opened {
		events = append(events, shared.NewActivityUnlockedEvent(cmd.UserID, id, now))
	}
	publishAll(ctx, h.publisher, h.log, events...)
	return result, nil
}
