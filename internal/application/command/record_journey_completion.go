package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD JOURNEY COMPLETION COMMAND
// Applies a finished attempt to the journey: history, XP, level, weekly
// progress and the daily goal. A redelivered completion changes nothing.
// ══════════════════════════════════════════════════════════════════════════════

// RecordJourneyCompletionCommand carries the completion summary.
type RecordJourneyCompletionCommand struct {
	UserID     string
	Completion journey.CompletedActivity
}

// Validate validates the command.
func (c RecordJourneyCompletionCommand) Validate() error {
	if c.UserID == "" {
		return required("record_journey_completion", "user_id")
	}
	if c.Completion.ActivityID == "" {
		return required("record_journey_completion", "activity_id")
	}
	return nil
}

// RecordJourneyCompletionHandler handles RecordJourneyCompletionCommand.
type RecordJourneyCompletionHandler struct {
	resolver  JourneyResolver
	journeys  journey.Repository
	locker    completion.Locker
	publisher shared.EventPublisher
	location  *time.Location
	log       *logger.Logger
}

// NewRecordJourneyCompletionHandler creates a new handler. loc is the
// reference zone for daily-goal bookkeeping.
func NewRecordJourneyCompletionHandler(
	resolver JourneyResolver,
	journeys journey.Repository,
	locker completion.Locker,
	publisher shared.EventPublisher,
	loc *time.Location,
	log *logger.Logger,
) *RecordJourneyCompletionHandler {
	return &RecordJourneyCompletionHandler{
		resolver:  resolver,
		journeys:  journeys,
		locker:    locker,
		publisher: publisher,
		location:  loc,
		log:       orNop(log).With(logger.String("handler", "record_journey_completion")),
	}
}

// Handle executes the command.
func (h *RecordJourneyCompletionHandler) Handle(ctx context.Context, cmd RecordJourneyCompletionCommand) (*journey.RecordResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		result  journey.RecordResult
		totalXP int
	)
	err := withLock(ctx, h.locker, journeyLockKey(cmd.UserID), func() error {
		state, activities, err := h.resolver.Ensure(ctx, cmd.UserID)
		if err != nil {
			return err
		}

		result = state.RecordCompletion(cmd.Completion, activities, h.location)
		if result.Duplicate {
			return nil
		}
		totalXP = state.TotalXP
		if err := h.journeys.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to save journey: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record_journey_completion: %w", err)
	}

	if result.Duplicate {
		h.log.Debug("completion already recorded",
			logger.UserID(cmd.UserID),
			logger.ActivityID(cmd.Completion.ActivityID),
		)
		return &result, nil
	}

	if result.LeveledUp {
		h.log.Info("level up",
			logger.UserID(cmd.UserID),
			logger.Int("old_level", result.OldLevel),
			logger.Int("new_level", result.NewLevel),
		)
		publishAll(ctx, h.publisher, h.log,
			shared.NewLevelUpEvent(cmd.UserID, result.OldLevel, result.NewLevel, totalXP, cmd.Completion.CompletedAt))
	}
	return &result, nil
}
