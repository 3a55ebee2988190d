package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT ANSWER COMMAND
// Checks one answer against the answer key. Incorrect answers become mistake
// entries and are written through to the review store.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitAnswerCommand contains one submitted answer.
type SubmitAnswerCommand struct {
	UserID     string
	ActivityID string
	QuestionID string
	Value      string

	// TimeSpent on this question; negative values are treated as zero.
	TimeSpent time.Duration
}

// Validate validates the command.
func (c SubmitAnswerCommand) Validate() error {
	if c.UserID == "" {
		return required("submit_answer", "user_id")
	}
	if c.ActivityID == "" {
		return required("submit_answer", "activity_id")
	}
	if c.QuestionID == "" {
		return fmt.Errorf("submit_answer: %w", shared.ErrInvalidAnswerInput)
	}
	return nil
}

// SubmitAnswerHandler handles SubmitAnswerCommand.
type SubmitAnswerHandler struct {
	answers  catalog.AnswerKey
	records  completion.Repository
	mistakes completion.MistakeStore
	locker   completion.Locker
	clock    shared.Clock
	log      *logger.Logger
}

// NewSubmitAnswerHandler creates a new SubmitAnswerHandler.
// mistakes may be nil; mistakes then stay on the record only.
func NewSubmitAnswerHandler(
	answers catalog.AnswerKey,
	records completion.Repository,
	mistakes completion.MistakeStore,
	locker completion.Locker,
	clock shared.Clock,
	log *logger.Logger,
) *SubmitAnswerHandler {
	return &SubmitAnswerHandler{
		answers:  answers,
		records:  records,
		mistakes: mistakes,
		locker:   locker,
		clock:    orSystemClock(clock),
		log:      orNop(log).With(logger.String("handler", "submit_answer")),
	}
}

// Handle executes the submit answer command.
func (h *SubmitAnswerHandler) Handle(ctx context.Context, cmd SubmitAnswerCommand) (*completion.AnswerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		result  completion.AnswerResult
		mistake *completion.Mistake
	)
	err := withLock(ctx, h.locker, completion.LockKey(cmd.UserID, cmd.ActivityID), func() error {
		// Запись перечитывается под блокировкой.
		record, err := h.records.Get(ctx, cmd.UserID, cmd.ActivityID)
		if err != nil {
			return err
		}
		question, err := h.answers.GetQuestion(ctx, cmd.ActivityID, cmd.QuestionID)
		if err != nil {
			return err
		}

		result, mistake, err = record.SubmitAnswer(question, cmd.Value, cmd.TimeSpent, h.clock.Now())
		if err != nil {
			return err
		}
		if err := h.records.Save(ctx, record); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit_answer: %w", err)
	}

	if mistake != nil && h.mistakes != nil {
		if err := h.mistakes.RecordMistake(ctx, cmd.UserID, cmd.ActivityID, *mistake); err != nil {
			h.log.Warn("failed to record mistake for review",
				logger.UserID(cmd.UserID),
				logger.ActivityID(cmd.ActivityID),
				logger.QuestionID(cmd.QuestionID),
				logger.Err(err),
			)
		}
	}

	return &result, nil
}
