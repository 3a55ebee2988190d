package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// GetMistakesQuery requests the review items that are due now.
type GetMistakesQuery struct {
	UserID string

	// Limit - сколько элементов вернуть (по умолчанию 20, максимум 100).
	Limit int
}

// Validate validates the query and applies defaults.
func (q *GetMistakesQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("get_mistakes: user_id is required: %w", shared.ErrInvalidInput)
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// GetMistakesHandler handles GetMistakesQuery.
type GetMistakesHandler struct {
	mistakes completion.MistakeStore
	clock    shared.Clock
}

// NewGetMistakesHandler creates a new handler.
func NewGetMistakesHandler(mistakes completion.MistakeStore, clock shared.Clock) *GetMistakesHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &GetMistakesHandler{mistakes: mistakes, clock: clock}
}

// Handle returns due review items, most urgent first.
func (h *GetMistakesHandler) Handle(ctx context.Context, q GetMistakesQuery) ([]completion.ReviewItem, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	items, err := h.mistakes.DueForReview(ctx, q.UserID, h.clock.Now(), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_mistakes: %w", err)
	}
	if items == nil {
		items = []completion.ReviewItem{}
	}
	return items, nil
}
