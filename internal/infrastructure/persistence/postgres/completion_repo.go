package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRepository implements completion.Repository for PostgreSQL.
type CompletionRepository struct {
	conn *Connection
}

// NewCompletionRepository creates a new CompletionRepository.
func NewCompletionRepository(conn *Connection) *CompletionRepository {
	return &CompletionRepository{conn: conn}
}

const completionColumns = `
	id, user_id, activity_id, subject_id, status, started_at, completed_at,
	score, max_score, time_spent_ms, xp_earned, counts_for_streak,
	answers, mistakes, updated_at
`

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Get returns the record for (userID, activityID).
func (r *CompletionRepository) Get(ctx context.Context, userID, activityID string) (*completion.Record, error) {
	query := `SELECT ` + completionColumns + ` FROM completion_records WHERE user_id = $1 AND activity_id = $2`

	rec, err := scanRecord(r.conn.QueryRow(ctx, query, userID, activityID))
	if IsNoRows(err) {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Save upserts the record keyed by (user_id, activity_id).
// The id of an existing row is kept.
func (r *CompletionRepository) Save(ctx context.Context, rec *completion.Record) error {
	query := `
		INSERT INTO completion_records (` + completionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id, activity_id) DO UPDATE SET
			subject_id = EXCLUDED.subject_id,
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			score = EXCLUDED.score,
			max_score = EXCLUDED.max_score,
			time_spent_ms = EXCLUDED.time_spent_ms,
			xp_earned = EXCLUDED.xp_earned,
			counts_for_streak = EXCLUDED.counts_for_streak,
			answers = EXCLUDED.answers,
			mistakes = EXCLUDED.mistakes,
			updated_at = EXCLUDED.updated_at
	`

	answersJSON, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	mistakesJSON, err := json.Marshal(rec.Mistakes)
	if err != nil {
		return fmt.Errorf("failed to marshal mistakes: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.ActivityID,
		rec.SubjectID,
		string(rec.Status),
		rec.StartedAt,
		rec.CompletedAt,
		rec.Score,
		rec.MaxScore,
		rec.TimeSpent.Milliseconds(),
		rec.XPEarned,
		rec.CountsForStreak,
		answersJSON,
		mistakesJSON,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save completion record: %w", err)
	}
	return nil
}

// ListByUser returns every record of a user, oldest first.
func (r *CompletionRepository) ListByUser(ctx context.Context, userID string) ([]*completion.Record, error) {
	query := `SELECT ` + completionColumns + ` FROM completion_records WHERE user_id = $1 ORDER BY started_at ASC, activity_id ASC`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completion records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListCompleted returns terminal records completed at or after since.
func (r *CompletionRepository) ListCompleted(ctx context.Context, userID, subjectID string, since time.Time) ([]*completion.Record, error) {
	query := `
		SELECT ` + completionColumns + `
		FROM completion_records
		WHERE user_id = $1
		  AND status IN ('completed', 'perfect')
		  AND completed_at >= $2
		  AND ($3 = '' OR subject_id = $3)
		ORDER BY completed_at ASC, activity_id ASC
	`

	rows, err := r.conn.Query(ctx, query, userID, since, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

type recordRows interface {
	rowScanner
	Next() bool
	Err() error
}

func collectRecords(rows recordRows) ([]*completion.Record, error) {
	records := make([]*completion.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completion records: %w", err)
	}
	return records, nil
}

func scanRecord(row rowScanner) (*completion.Record, error) {
	var rec completion.Record
	var status string
	var spentMs int64
	var answersJSON, mistakesJSON []byte

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.ActivityID,
		&rec.SubjectID,
		&status,
		&rec.StartedAt,
		&rec.CompletedAt,
		&rec.Score,
		&rec.MaxScore,
		&spentMs,
		&rec.XPEarned,
		&rec.CountsForStreak,
		&answersJSON,
		&mistakesJSON,
		&rec.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan completion record: %w", err)
	}

	rec.Status = completion.Status(status)
	rec.TimeSpent = time.Duration(spentMs) * time.Millisecond

	rec.Answers = []completion.Answer{}
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &rec.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
	}
	rec.Mistakes = []completion.Mistake{}
	if len(mistakesJSON) > 0 {
		if err := json.Unmarshal(mistakesJSON, &rec.Mistakes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mistakes: %w", err)
		}
	}
	return &rec, nil
}
