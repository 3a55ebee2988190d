package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/feedback"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS FEEDBACK QUERY
// Тренд по предмету за окно дней: improving / stable / declining.
// Считается по запросу, поверх сохранённой истории.
// ══════════════════════════════════════════════════════════════════════════════

// MaxWindowDays bounds the trend window.
const MaxWindowDays = 365

// GetProgressFeedbackQuery содержит параметры запроса тренда.
type GetProgressFeedbackQuery struct {
	UserID    string
	SubjectID string

	// WindowDays - окно в днях; 0 и меньше означает 30.
	WindowDays int
}

// Validate проверяет корректность параметров.
func (q *GetProgressFeedbackQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("get_progress_feedback: user_id is required: %w", shared.ErrInvalidInput)
	}
	if q.WindowDays <= 0 {
		q.WindowDays = feedback.DefaultWindowDays
	}
	if q.WindowDays > MaxWindowDays {
		q.WindowDays = MaxWindowDays
	}
	return nil
}

// GetProgressFeedbackHandler обрабатывает запрос тренда.
type GetProgressFeedbackHandler struct {
	records completion.Repository
	clock   shared.Clock
}

// NewGetProgressFeedbackHandler создаёт обработчик.
func NewGetProgressFeedbackHandler(records completion.Repository, clock shared.Clock) *GetProgressFeedbackHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &GetProgressFeedbackHandler{records: records, clock: clock}
}

// Handle выполняет запрос.
func (h *GetProgressFeedbackHandler) Handle(ctx context.Context, q GetProgressFeedbackQuery) (*feedback.Report, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	since := h.clock.Now().AddDate(0, 0, -q.WindowDays)
	records, err := h.records.ListCompleted(ctx, q.UserID, q.SubjectID, since)
	if err != nil {
		return nil, fmt.Errorf("get_progress_feedback: %w", err)
	}

	report := feedback.ProgressFeedback(q.UserID, q.SubjectID, q.WindowDays, records)
	return &report, nil
}
