// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// JourneyResolver returns a user's journey and its plan activities, creating
// the journey on first access. Implemented by saga.EnrollmentSaga.
type JourneyResolver interface {
	Ensure(ctx context.Context, userID string) (*journey.State, []catalog.Activity, error)
}

// required builds the validation error for a missing field.
func required(op, field string) error {
	return fmt.Errorf("%s: %s is required: %w", op, field, shared.ErrInvalidInput)
}

// journeyLockKey и streakLockKey сериализуют изменения одного агрегата
// пользователя, так же как completion.LockKey для записи.
func journeyLockKey(userID string) string { return "journey:" + userID }
func streakLockKey(userID string) string  { return "streak:" + userID }

// withLock runs fn while holding key.
func withLock(ctx context.Context, locker completion.Locker, key string, fn func() error) error {
	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	defer unlock()
	return fn()
}

// publishAll publishes events in order. Failures are logged, never returned:
// the state they describe is already persisted.
func publishAll(ctx context.Context, pub shared.EventPublisher, log *logger.Logger, events ...shared.Event) {
	if pub == nil {
		return
	}
	for _, e := range events {
		if err := pub.Publish(ctx, e); err != nil {
			log.Warn("failed to publish event",
				logger.String("event_type", string(e.EventType())),
				logger.String("aggregate_id", e.AggregateID()),
				logger.Err(err),
			)
		}
	}
}

func orSystemClock(c shared.Clock) shared.Clock {
	if c == nil {
		return shared.SystemClock{}
	}
	return c
}

func orNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}
