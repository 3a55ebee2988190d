package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/feedback"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// GetActivitySummaryQuery requests the summary of one attempt.
type GetActivitySummaryQuery struct {
	UserID     string
	ActivityID string
}

// Validate validates the query.
func (q *GetActivitySummaryQuery) Validate() error {
	if q.UserID == "" || q.ActivityID == "" {
		return fmt.Errorf("get_activity_summary: user_id and activity_id are required: %w", shared.ErrInvalidInput)
	}
	return nil
}

// GetActivitySummaryHandler handles GetActivitySummaryQuery.
type GetActivitySummaryHandler struct {
	records completion.Repository
}

// NewGetActivitySummaryHandler creates a new handler.
func NewGetActivitySummaryHandler(records completion.Repository) *GetActivitySummaryHandler {
	return &GetActivitySummaryHandler{records: records}
}

// Handle returns the summary; records that are still in progress are
// summarized from the answers submitted so far.
func (h *GetActivitySummaryHandler) Handle(ctx context.Context, q GetActivitySummaryQuery) (*feedback.Summary, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	record, err := h.records.Get(ctx, q.UserID, q.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("get_activity_summary: %w", err)
	}

	summary := feedback.SummarizeCompletion(record)
	return &summary, nil
}
