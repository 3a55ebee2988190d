package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// SetDailyGoalCommand changes the user's daily study goal.
type SetDailyGoalCommand struct {
	UserID  string
	Minutes int
}

// Validate validates the command.
func (c SetDailyGoalCommand) Validate() error {
	if c.UserID == "" {
		return required("set_daily_goal", "user_id")
	}
	if c.Minutes < journey.MinDailyGoal || c.Minutes > journey.MaxDailyGoal {
		return fmt.Errorf("set_daily_goal: %w", shared.ErrInvalidRange)
	}
	return nil
}

// SetDailyGoalHandler handles SetDailyGoalCommand.
type SetDailyGoalHandler struct {
	resolver JourneyResolver
	journeys journey.Repository
	locker   completion.Locker
	clock    shared.Clock
	log      *logger.Logger
}

// NewSetDailyGoalHandler creates a new SetDailyGoalHandler.
func NewSetDailyGoalHandler(
	resolver JourneyResolver,
	journeys journey.Repository,
	locker completion.Locker,
	clock shared.Clock,
	log *logger.Logger,
) *SetDailyGoalHandler {
	return &SetDailyGoalHandler{
		resolver: resolver,
		journeys: journeys,
		locker:   locker,
		clock:    orSystemClock(clock),
		log:      orNop(log).With(logger.String("handler", "set_daily_goal")),
	}
}

// Handle executes the set daily goal command.
func (h *SetDailyGoalHandler) Handle(ctx context.Context, cmd SetDailyGoalCommand) (*journey.State, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var state *journey.State
	err := withLock(ctx, h.locker, journeyLockKey(cmd.UserID), func() error {
		var err error
		state, _, err = h.resolver.Ensure(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		if err := state.SetDailyGoal(cmd.Minutes, h.clock.Now()); err != nil {
			return err
		}
		return h.journeys.Save(ctx, state)
	})
	if err != nil {
		return nil, fmt.Errorf("set_daily_goal: %w", err)
	}

	h.log.Debug("daily goal updated", logger.UserID(cmd.UserID), logger.Int("minutes", cmd.Minutes))
	return state, nil
}
