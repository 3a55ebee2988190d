package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/feedback"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE ACTIVITY COMMAND
// Finalizes an attempt. Order: persist record → publish ActivityCompletedEvent
// → return summary. Journey and streak consumers react to the event
// independently; their failures never undo the completion.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteActivityCommand contains the data to complete an activity.
type CompleteActivityCommand struct {
	UserID     string
	ActivityID string
}

// Validate validates the command.
func (c CompleteActivityCommand) Validate() error {
	if c.UserID == "" {
		return required("complete_activity", "user_id")
	}
	if c.ActivityID == "" {
		return required("complete_activity", "activity_id")
	}
	return nil
}

// CompleteActivityResult contains the finalized record and its summary.
type CompleteActivityResult struct {
	Record  *completion.Record
	Outcome completion.Outcome
	Summary feedback.Summary
}

// CompleteActivityHandler handles CompleteActivityCommand.
type CompleteActivityHandler struct {
	catalog   catalog.Catalog
	records   completion.Repository
	locker    completion.Locker
	publisher shared.EventPublisher
	clock     shared.Clock
	log       *logger.Logger
}

// NewCompleteActivityHandler creates a new CompleteActivityHandler.
func NewCompleteActivityHandler(
	cat catalog.Catalog,
	records completion.Repository,
	locker completion.Locker,
	publisher shared.EventPublisher,
	clock shared.Clock,
	log *logger.Logger,
) *CompleteActivityHandler {
	return &CompleteActivityHandler{
		catalog:   cat,
		records:   records,
		locker:    locker,
		publisher: publisher,
		clock:     orSystemClock(clock),
		log:       orNop(log).With(logger.String("handler", "complete_activity")),
	}
}

// Handle executes the complete activity command.
func (h *CompleteActivityHandler) Handle(ctx context.Context, cmd CompleteActivityCommand) (*CompleteActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	activity, err := h.catalog.GetActivity(ctx, cmd.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("complete_activity: %w", err)
	}

	var (
		record  *completion.Record
		outcome completion.Outcome
	)
	err = withLock(ctx, h.locker, completion.LockKey(cmd.UserID, cmd.ActivityID), func() error {
		record, err = h.records.Get(ctx, cmd.UserID, cmd.ActivityID)
		if err != nil {
			return err
		}
		outcome, err = record.Complete(activity, h.clock.Now())
		if err != nil {
			return err
		}
		if err := h.records.Save(ctx, record); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete_activity: %w", err)
	}

	h.log.Info("activity completed",
		logger.UserID(cmd.UserID),
		logger.ActivityID(cmd.ActivityID),
		logger.Int("score", outcome.Score),
		logger.Bool("perfect", outcome.IsPerfect),
		logger.XPAmount(outcome.XPEarned),
	)

	// ═══════════════════════════════════════════════════════════════════
	// Fan-out: запись уже сохранена, дальше только best-effort
	// ═══════════════════════════════════════════════════════════════════
	event := shared.NewActivityCompletedEvent(cmd.UserID, cmd.ActivityID, record.SubjectID, outcome.CompletedAt)
	event.Score = outcome.Score
	event.TimeSpent = outcome.TimeSpent
	event.XPEarned = outcome.XPEarned
	event.IsPerfect = outcome.IsPerfect
	event.CountsForStreak = outcome.CountsForStreak
	publishAll(ctx, h.publisher, h.log, event)

	return &CompleteActivityResult{
		Record:  record,
		Outcome: outcome,
		Summary: feedback.SummarizeCompletion(record),
	}, nil
}
