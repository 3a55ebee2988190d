package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements streak.Repository for PostgreSQL.
type StreakRepository struct {
	conn *Connection
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

// Get returns the user's streak state.
func (r *StreakRepository) Get(ctx context.Context, userID string) (*streak.State, error) {
	query := `
		SELECT user_id, current_streak, longest_streak, last_activity_date,
			   freezes_available, freeze_used_dates, recovery_window_end,
			   total_activities_completed, milestones, updated_at
		FROM streaks
		WHERE user_id = $1
	`

	var s streak.State
	var freezeJSON, milestonesJSON []byte
	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.CurrentStreak,
		&s.LongestStreak,
		&s.LastActivityDate,
		&s.FreezesAvailable,
		&freezeJSON,
		&s.RecoveryWindowEnd,
		&s.TotalActivitiesCompleted,
		&milestonesJSON,
		&s.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrStreakNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan streak: %w", err)
	}

	s.FreezeUsedDates = []time.Time{}
	if err := json.Unmarshal(freezeJSON, &s.FreezeUsedDates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal freeze dates: %w", err)
	}
	s.Milestones = []streak.Milestone{}
	if err := json.Unmarshal(milestonesJSON, &s.Milestones); err != nil {
		return nil, fmt.Errorf("failed to unmarshal milestones: %w", err)
	}
	return &s, nil
}

// Save upserts the streak state.
func (r *StreakRepository) Save(ctx context.Context, s *streak.State) error {
	query := `
		INSERT INTO streaks (
			user_id, current_streak, longest_streak, last_activity_date,
			freezes_available, freeze_used_dates, recovery_window_end,
			total_activities_completed, milestones, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_activity_date = EXCLUDED.last_activity_date,
			freezes_available = EXCLUDED.freezes_available,
			freeze_used_dates = EXCLUDED.freeze_used_dates,
			recovery_window_end = EXCLUDED.recovery_window_end,
			total_activities_completed = EXCLUDED.total_activities_completed,
			milestones = EXCLUDED.milestones,
			updated_at = EXCLUDED.updated_at
	`

	freeze := s.FreezeUsedDates
	if freeze == nil {
		freeze = []time.Time{}
	}
	freezeJSON, err := json.Marshal(freeze)
	if err != nil {
		return fmt.Errorf("failed to marshal freeze dates: %w", err)
	}
	milestones := s.Milestones
	if milestones == nil {
		milestones = []streak.Milestone{}
	}
	milestonesJSON, err := json.Marshal(milestones)
	if err != nil {
		return fmt.Errorf("failed to marshal milestones: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		s.UserID,
		s.CurrentStreak,
		s.LongestStreak,
		s.LastActivityDate,
		s.FreezesAvailable,
		freezeJSON,
		s.RecoveryWindowEnd,
		s.TotalActivitiesCompleted,
		milestonesJSON,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}

// IncrementDailyCount bumps the counter of the day starting at day.
func (r *StreakRepository) IncrementDailyCount(ctx context.Context, userID string, day time.Time) error {
	query := `
		INSERT INTO streak_daily_counts (user_id, day_start, activity_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day_start) DO UPDATE SET
			activity_count = streak_daily_counts.activity_count + 1
	`
	if _, err := r.conn.Exec(ctx, query, userID, day); err != nil {
		return fmt.Errorf("failed to increment daily count: %w", err)
	}
	return nil
}

// DailyCounts returns the non-zero counters in [from, to].
func (r *StreakRepository) DailyCounts(ctx context.Context, userID string, from, to time.Time) ([]streak.DailyCount, error) {
	query := `
		SELECT day_start, activity_count
		FROM streak_daily_counts
		WHERE user_id = $1 AND day_start >= $2 AND day_start <= $3
		ORDER BY day_start ASC
	`

	rows, err := r.conn.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	counts := make([]streak.DailyCount, 0)
	for rows.Next() {
		var c streak.DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
