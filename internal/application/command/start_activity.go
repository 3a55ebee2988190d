package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// START ACTIVITY COMMAND
// Opens an attempt at an activity. Idempotent: a record that is already in
// progress or terminal is returned unchanged.
// ══════════════════════════════════════════════════════════════════════════════

// StartActivityCommand contains the data to start an activity.
type StartActivityCommand struct {
	UserID     string
	ActivityID string
}

// Validate validates the command.
func (c StartActivityCommand) Validate() error {
	if c.UserID == "" {
		return required("start_activity", "user_id")
	}
	if c.ActivityID == "" {
		return required("start_activity", "activity_id")
	}
	return nil
}

// StartActivityResult contains the result of starting an activity.
type StartActivityResult struct {
	Record *completion.Record

	// Created is true when this call created the record.
	Created bool
}

// StartActivityHandler handles StartActivityCommand.
type StartActivityHandler struct {
	catalog   catalog.Catalog
	records   completion.Repository
	locker    completion.Locker
	publisher shared.EventPublisher
	clock     shared.Clock
	newID     func() string
	log       *logger.Logger
}

// NewStartActivityHandler creates a new StartActivityHandler.
func NewStartActivityHandler(
	cat catalog.Catalog,
	records completion.Repository,
	locker completion.Locker,
	publisher shared.EventPublisher,
	clock shared.Clock,
	log *logger.Logger,
) *StartActivityHandler {
	return &StartActivityHandler{
		catalog:   cat,
		records:   records,
		locker:    locker,
		publisher: publisher,
		clock:     orSystemClock(clock),
		newID:     uuid.NewString,
		log:       orNop(log).With(logger.String("handler", "start_activity")),
	}
}

// Handle executes the start activity command.
func (h *StartActivityHandler) Handle(ctx context.Context, cmd StartActivityCommand) (*StartActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	activity, err := h.catalog.GetActivity(ctx, cmd.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("start_activity: %w", err)
	}

	result := &StartActivityResult{}
	err = withLock(ctx, h.locker, completion.LockKey(cmd.UserID, cmd.ActivityID), func() error {
		now := h.clock.Now()

		record, err := h.records.Get(ctx, cmd.UserID, cmd.ActivityID)
		switch {
		case err == nil:
			changed, err := record.Start(now)
			if err != nil {
				return err
			}
			if changed {
				if err := h.records.Save(ctx, record); err != nil {
					return fmt.Errorf("failed to save record: %w", err)
				}
			}
		case shared.IsNotFound(err):
			record, err = completion.NewRecord(h.newID(), cmd.UserID, activity, now)
			if err != nil {
				return err
			}
			if err := h.records.Save(ctx, record); err != nil {
				return fmt.Errorf("failed to save record: %w", err)
			}
			result.Created = true
		default:
			return fmt.Errorf("failed to get record: %w", err)
		}

		result.Record = record
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("start_activity: %w", err)
	}

	if result.Created {
		h.log.Info("activity started",
			logger.UserID(cmd.UserID),
			logger.ActivityID(cmd.ActivityID),
		)
		publishAll(ctx, h.publisher, h.log,
			shared.NewActivityStartedEvent(cmd.UserID, cmd.ActivityID, result.Record.StartedAt))
	}
	return result, nil
}
