package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/internal/domain/streak"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MANAGE FREEZE COMMAND
// Заморозки и восстановление серии: use, purchase, start recovery, recover.
// ══════════════════════════════════════════════════════════════════════════════

// FreezeAction selects the streak maintenance operation.
type FreezeAction string

const (
	FreezeActionUse           FreezeAction = "use"
	FreezeActionPurchase      FreezeAction = "purchase"
	FreezeActionStartRecovery FreezeAction = "start_recovery"
	FreezeActionRecover       FreezeAction = "recover"
)

// ManageFreezeCommand contains the data for a freeze or recovery operation.
type ManageFreezeCommand struct {
	UserID string
	Action FreezeAction

	// Count is the number of freezes to purchase (purchase only).
	Count int
}

// Validate validates the command.
func (c ManageFreezeCommand) Validate() error {
	if c.UserID == "" {
		return required("manage_freeze", "user_id")
	}
	switch c.Action {
	case FreezeActionUse, FreezeActionStartRecovery, FreezeActionRecover:
		return nil
	case FreezeActionPurchase:
		if c.Count < 1 {
			return fmt.Errorf("manage_freeze: %w", shared.ErrInvalidFreezeCount)
		}
		return nil
	default:
		return fmt.Errorf("manage_freeze: unknown action %q: %w", c.Action, shared.ErrInvalidInput)
	}
}

// ManageFreezeHandler handles ManageFreezeCommand.
type ManageFreezeHandler struct {
	streaks   streak.Repository
	locker    completion.Locker
	publisher shared.EventPublisher
	clock     shared.Clock
	policy    streak.Policy
	log       *logger.Logger
}

// NewManageFreezeHandler creates a new ManageFreezeHandler.
func NewManageFreezeHandler(
	streaks streak.Repository,
	locker completion.Locker,
	publisher shared.EventPublisher,
	clock shared.Clock,
	policy streak.Policy,
	log *logger.Logger,
) *ManageFreezeHandler {
	return &ManageFreezeHandler{
		streaks:   streaks,
		locker:    locker,
		publisher: publisher,
		clock:     orSystemClock(clock),
		policy:    policy,
		log:       orNop(log).With(logger.String("handler", "manage_freeze")),
	}
}

// Handle applies the action and returns the updated streak.
func (h *ManageFreezeHandler) Handle(ctx context.Context, cmd ManageFreezeCommand) (*streak.State, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	var state *streak.State
	err := withLock(ctx, h.locker, streakLockKey(cmd.UserID), func() error {
		var err error
		state, err = loadStreak(ctx, h.streaks, cmd.UserID, now)
		if err != nil {
			return err
		}

		switch cmd.Action {
		case FreezeActionUse:
			err = state.UseFreeze(now, h.policy)
		case FreezeActionPurchase:
			err = state.PurchaseFreeze(cmd.Count, now)
		case FreezeActionStartRecovery:
			err = state.StartRecovery(now, h.policy)
		case FreezeActionRecover:
			err = state.Recover(now, h.policy)
		}
		if err != nil {
			return err
		}
		if err := h.streaks.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to save streak: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manage_freeze: %s: %w", cmd.Action, err)
	}

	h.log.Info("streak updated",
		logger.UserID(cmd.UserID),
		logger.String("action", string(cmd.Action)),
		logger.StreakDays(state.CurrentStreak),
		logger.Int("freezes", state.FreezesAvailable),
	)
	if cmd.Action == FreezeActionRecover {
		publishAll(ctx, h.publisher, h.log, shared.NewStreakRecoveredEvent(cmd.UserID, state.CurrentStreak, now))
	}
	return state, nil
}
