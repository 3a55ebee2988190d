// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/internal/domain/streak"
	"github.com/alem-hub/learning-journey/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK QUERY
// Текущая серия пользователя и активность за последние N дней.
// Серия не пересчитывается при чтении: она меняется только при регистрации
// активности.
// ══════════════════════════════════════════════════════════════════════════════

// GetStreakQuery содержит параметры запроса серии.
type GetStreakQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Days - за сколько дней показывать активность (по умолчанию 7, максимум 30).
	Days int
}

// Validate проверяет корректность параметров.
func (q *GetStreakQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("get_streak: user_id is required: %w", shared.ErrInvalidInput)
	}
	if q.Days <= 0 {
		q.Days = 7
	}
	if q.Days > 30 {
		q.Days = 30
	}
	return nil
}

// StreakDTO - серия вместе с дневной активностью.
type StreakDTO struct {
	*streak.State

	// RecoveryAvailable - открыто ли сейчас окно восстановления.
	RecoveryAvailable bool `json:"recovery_available"`

	// RecentDays - активность по дням, от старых к новым.
	RecentDays []streak.DailyCount `json:"recent_days"`
}

// GetStreakHandler обрабатывает запрос серии.
type GetStreakHandler struct {
	streaks streak.Repository
	clock   shared.Clock
	loc     *time.Location
}

// NewGetStreakHandler создаёт обработчик. loc - опорный часовой пояс.
func NewGetStreakHandler(streaks streak.Repository, clock shared.Clock, loc *time.Location) *GetStreakHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if loc == nil {
		loc = timeutil.AlmatyTZ
	}
	return &GetStreakHandler{streaks: streaks, clock: clock, loc: loc}
}

// Handle выполняет запрос. Для пользователя без серии возвращается пустая.
func (h *GetStreakHandler) Handle(ctx context.Context, q GetStreakQuery) (*StreakDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	now := h.clock.Now()

	state, err := h.streaks.Get(ctx, q.UserID)
	if shared.IsNotFound(err) {
		state, err = streak.NewState(q.UserID, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get_streak: %w", err)
	}

	days := timeutil.LastNDays(now, q.Days, h.loc)
	counts, err := h.streaks.DailyCounts(ctx, q.UserID, days[0], timeutil.EndOfDay(now, h.loc))
	if err != nil {
		return nil, fmt.Errorf("get_streak: failed to load daily counts: %w", err)
	}

	return &StreakDTO{
		State:             state,
		RecoveryAvailable: state.RecoveryOpen(now),
		RecentDays:        streak.FillDays(days, counts, h.loc),
	}, nil
}
