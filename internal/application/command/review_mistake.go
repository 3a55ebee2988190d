package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ReviewMistakeCommand marks the mistakes on one question as reviewed.
type ReviewMistakeCommand struct {
	UserID     string
	ActivityID string
	QuestionID string

	// Recalled reports whether the learner got it right on review.
	Recalled bool
}

// Validate validates the command.
func (c ReviewMistakeCommand) Validate() error {
	if c.UserID == "" {
		return required("review_mistake", "user_id")
	}
	if c.ActivityID == "" {
		return required("review_mistake", "activity_id")
	}
	if c.QuestionID == "" {
		return required("review_mistake", "question_id")
	}
	return nil
}

// ReviewMistakeHandler handles ReviewMistakeCommand.
type ReviewMistakeHandler struct {
	records  completion.Repository
	mistakes completion.MistakeStore
	locker   completion.Locker
	clock    shared.Clock
	log      *logger.Logger
}

// NewReviewMistakeHandler creates a new ReviewMistakeHandler.
func NewReviewMistakeHandler(
	records completion.Repository,
	mistakes completion.MistakeStore,
	locker completion.Locker,
	clock shared.Clock,
	log *logger.Logger,
) *ReviewMistakeHandler {
	return &ReviewMistakeHandler{
		records:  records,
		mistakes: mistakes,
		locker:   locker,
		clock:    orSystemClock(clock),
		log:      orNop(log).With(logger.String("handler", "review_mistake")),
	}
}

// Handle stamps ReviewedAt on the record and reschedules the review item.
func (h *ReviewMistakeHandler) Handle(ctx context.Context, cmd ReviewMistakeCommand) (*completion.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	var record *completion.Record
	err := withLock(ctx, h.locker, completion.LockKey(cmd.UserID, cmd.ActivityID), func() error {
		var err error
		record, err = h.records.Get(ctx, cmd.UserID, cmd.ActivityID)
		if err != nil {
			return err
		}
		if err := record.ReviewMistake(cmd.QuestionID, now); err != nil {
			return err
		}
		return h.records.Save(ctx, record)
	})
	if err != nil {
		return nil, fmt.Errorf("review_mistake: %w", err)
	}

	if h.mistakes != nil {
		if err := h.mistakes.RecordReview(ctx, cmd.UserID, cmd.ActivityID, cmd.QuestionID, cmd.Recalled, now); err != nil {
			h.log.Warn("failed to reschedule review item",
				logger.UserID(cmd.UserID),
				logger.QuestionID(cmd.QuestionID),
				logger.Err(err),
			)
		}
	}
	return record, nil
}
