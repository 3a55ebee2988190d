// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/application/command"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ACTIVITY COMPLETED HANDLER
// Разносит завершение активности по двум независимым потребителям:
//
// 1. Путь (journey): история, XP, уровень, недельный прогресс, дневная цель
// 2. Серия (streak): засчитывает день, если активность учитывается в серии
//
// Потребители подписаны отдельно: ошибка одного не мешает другому и
// никогда не откатывает уже сохранённую запись о выполнении.
// ═══════════════════════════════════════════════════════════════════════════

// OnActivityCompletedHandler обрабатывает ActivityCompletedEvent.
type OnActivityCompletedHandler struct {
	journey *command.RecordJourneyCompletionHandler
	streak  *command.RegisterActivityHandler
	logger  *logger.Logger
}

// NewOnActivityCompletedHandler создаёт обработчик.
func NewOnActivityCompletedHandler(
	journeyHandler *command.RecordJourneyCompletionHandler,
	streakHandler *command.RegisterActivityHandler,
	log *logger.Logger,
) *OnActivityCompletedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnActivityCompletedHandler{
		journey: journeyHandler,
		streak:  streakHandler,
		logger:  log.With(logger.String("handler", "on_activity_completed")),
	}
}

// Subscribe регистрирует оба потребителя на шине.
func (h *OnActivityCompletedHandler) Subscribe(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventActivityCompleted, h.UpdateJourney); err != nil {
		return fmt.Errorf("subscribe journey consumer: %w", err)
	}
	if err := bus.Subscribe(shared.EventActivityCompleted, h.UpdateStreak); err != nil {
		return fmt.Errorf("subscribe streak consumer: %w", err)
	}
	return nil
}

// UpdateJourney применяет завершение к пути пользователя.
func (h *OnActivityCompletedHandler) UpdateJourney(ctx context.Context, event shared.Event) error {
	e, err := asCompleted(event)
	if err != nil {
		return err
	}

	result, err := h.journey.Handle(ctx, command.RecordJourneyCompletionCommand{
		UserID: e.UserID,
		Completion: journey.CompletedActivity{
			ActivityID:  e.ActivityID,
			CompletedAt: e.CompletedAt,
			Score:       e.Score,
			TimeSpent:   e.TimeSpent,
			XPEarned:    e.XPEarned,
			IsPerfect:   e.IsPerfect,
		},
	})
	if err != nil {
		h.logger.Warn("journey update failed",
			logger.UserID(e.UserID),
			logger.ActivityID(e.ActivityID),
			logger.Err(err),
		)
		return err
	}

	h.logger.Debug("journey updated",
		logger.UserID(e.UserID),
		logger.ActivityID(e.ActivityID),
		logger.Bool("leveled_up", result.LeveledUp),
		logger.Bool("week_advanced", result.WeekAdvanced),
		logger.Bool("goal_met", result.GoalMet),
	)
	return nil
}

// UpdateStreak засчитывает день серии.
func (h *OnActivityCompletedHandler) UpdateStreak(ctx context.Context, event shared.Event) error {
	e, err := asCompleted(event)
	if err != nil {
		return err
	}
	if !e.CountsForStreak {
		return nil
	}

	result, err := h.streak.Handle(ctx, command.RegisterActivityCommand{UserID: e.UserID})
	if err != nil {
		h.logger.Warn("streak update failed",
			logger.UserID(e.UserID),
			logger.Err(err),
		)
		return err
	}

	h.logger.Debug("streak updated",
		logger.UserID(e.UserID),
		logger.StreakDays(result.Streak),
	)
	return nil
}

func asCompleted(event shared.Event) (shared.ActivityCompletedEvent, error) {
	switch e := event.(type) {
	case shared.ActivityCompletedEvent:
		return e, nil
	case *shared.ActivityCompletedEvent:
		return *e, nil
	default:
		return shared.ActivityCompletedEvent{}, fmt.Errorf("unexpected event type %T", event)
	}
}
