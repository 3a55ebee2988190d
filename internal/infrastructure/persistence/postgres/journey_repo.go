package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// JourneyRepository implements journey.Repository for PostgreSQL.
// The aggregate is stored as a JSONB document.
type JourneyRepository struct {
	conn *Connection
}

// NewJourneyRepository creates a new JourneyRepository.
func NewJourneyRepository(conn *Connection) *JourneyRepository {
	return &JourneyRepository{conn: conn}
}

// Get returns the user's journey.
func (r *JourneyRepository) Get(ctx context.Context, userID string) (*journey.State, error) {
	var doc []byte
	err := r.conn.QueryRow(ctx, `SELECT state FROM journeys WHERE user_id = $1`, userID).Scan(&doc)
	if IsNoRows(err) {
		return nil, shared.ErrJourneyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan journey: %w", err)
	}

	var s journey.State
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journey: %w", err)
	}
	if s.Completed == nil {
		s.Completed = []journey.CompletedActivity{}
	}
	if s.Unlocked == nil {
		s.Unlocked = []string{}
	}
	return &s, nil
}

// Save upserts the journey.
func (r *JourneyRepository) Save(ctx context.Context, s *journey.State) error {
	query := `
		INSERT INTO journeys (
			user_id, plan_id, journey_type, current_week, total_xp, level,
			state, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			journey_type = EXCLUDED.journey_type,
			current_week = EXCLUDED.current_week,
			total_xp = EXCLUDED.total_xp,
			level = EXCLUDED.level,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`

	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal journey: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		s.UserID,
		s.PlanID,
		string(s.Type),
		s.CurrentWeek,
		s.TotalXP,
		s.Level,
		doc,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save journey: %w", err)
	}
	return nil
}
