package eventhandler

import (
	"context"

	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// AuditHandler пишет каждое доменное событие в лог.
type AuditHandler struct {
	logger *logger.Logger
}

// NewAuditHandler создаёт обработчик аудита.
func NewAuditHandler(log *logger.Logger) *AuditHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditHandler{logger: log.With(logger.String("handler", "audit"))}
}

// Subscribe регистрирует обработчик на все события.
func (h *AuditHandler) Subscribe(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(h.Handle)
}

// Handle implements shared.EventHandler.
func (h *AuditHandler) Handle(_ context.Context, event shared.Event) error {
	h.logger.Info("domain event",
		logger.String("event_type", string(event.EventType())),
		logger.String("aggregate_id", event.AggregateID()),
		logger.Time("occurred_at", event.OccurredAt()),
		logger.Any("payload", event.Payload()),
	)
	return nil
}
