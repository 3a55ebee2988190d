package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/internal/domain/streak"
	"github.com/alem-hub/learning-journey/pkg/logger"
	"github.com/alem-hub/learning-journey/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER ACTIVITY COMMAND
// Counts one activity toward the user's daily streak. Day boundaries are
// computed in the policy's reference zone, never in the client's zone.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterActivityCommand registers today's activity.
type RegisterActivityCommand struct {
	UserID string
}

// Validate validates the command.
func (c RegisterActivityCommand) Validate() error {
	if c.UserID == "" {
		return required("register_activity", "user_id")
	}
	return nil
}

// RegisterActivityHandler handles RegisterActivityCommand.
type RegisterActivityHandler struct {
	streaks   streak.Repository
	locker    completion.Locker
	publisher shared.EventPublisher
	clock     shared.Clock
	policy    streak.Policy
	log       *logger.Logger
}

// NewRegisterActivityHandler creates a new RegisterActivityHandler.
func NewRegisterActivityHandler(
	streaks streak.Repository,
	locker completion.Locker,
	publisher shared.EventPublisher,
	clock shared.Clock,
	policy streak.Policy,
	log *logger.Logger,
) *RegisterActivityHandler {
	return &RegisterActivityHandler{
		streaks:   streaks,
		locker:    locker,
		publisher: publisher,
		clock:     orSystemClock(clock),
		policy:    policy,
		log:       orNop(log).With(logger.String("handler", "register_activity")),
	}
}

// Handle executes the register activity command.
func (h *RegisterActivityHandler) Handle(ctx context.Context, cmd RegisterActivityCommand) (*streak.RegisterResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	var (
		result    streak.RegisterResult
		windowEnd = now
	)
	err := withLock(ctx, h.locker, streakLockKey(cmd.UserID), func() error {
		state, err := loadStreak(ctx, h.streaks, cmd.UserID, now)
		if err != nil {
			return err
		}

		result = state.RegisterActivity(now, h.policy)
		if state.RecoveryWindowEnd != nil {
			windowEnd = *state.RecoveryWindowEnd
		}
		if err := h.streaks.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to save streak: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("register_activity: %w", err)
	}

	loc := h.policy.Location
	if loc == nil {
		loc = timeutil.AlmatyTZ
	}
	if err := h.streaks.IncrementDailyCount(ctx, cmd.UserID, timeutil.StartOfDay(now, loc)); err != nil {
		h.log.Warn("failed to increment daily count", logger.UserID(cmd.UserID), logger.Err(err))
	}

	var events []shared.Event
	if result.Broken {
		h.log.Info("streak broken",
			logger.UserID(cmd.UserID),
			logger.Int("previous", result.PreviousStreak),
		)
		events = append(events, shared.NewStreakBrokenEvent(cmd.UserID, result.PreviousStreak, windowEnd, now))
	}
	if result.MilestoneHit {
		h.log.Info("streak milestone reached",
			logger.UserID(cmd.UserID),
			logger.StreakDays(result.MilestoneDay),
		)
		events = append(events, shared.NewStreakMilestoneEvent(cmd.UserID, result.MilestoneDay, now))
	}
	publishAll(ctx, h.publisher, h.log, events...)

	return &result, nil
}

// loadStreak returns the stored streak or a fresh one for a new user.
func loadStreak(ctx context.Context, repo streak.Repository, userID string, now time.Time) (*streak.State, error) {
	state, err := repo.Get(ctx, userID)
	if err == nil {
		return state, nil
	}
	if shared.IsNotFound(err) {
		return streak.NewState(userID, now), nil
	}
	return nil, fmt.Errorf("failed to get streak: %w", err)
}
