package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// ReviewStore implements completion.MistakeStore for PostgreSQL.
// One row per (user, activity, question); the SM-2 schedule is computed in the domain
// and written back inside a transaction.
type ReviewStore struct {
	conn *Connection
}

// NewReviewStore creates a new ReviewStore.
func NewReviewStore(conn *Connection) *ReviewStore {
	return &ReviewStore{conn: conn}
}

const reviewColumns = `
	user_id, question_id, activity_id, topic_id, incorrect_value, correct_value,
	explanation, occurrences, repetitions, easiness_factor, interval_days,
	next_review_at, last_reviewed_at, created_at
`

// RecordMistake adds a review item or marks an existing one as missed again.
func (s *ReviewStore) RecordMistake(ctx context.Context, userID, activityID string, m completion.Mistake) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		item, err := getReviewItemForUpdate(ctx, tx, userID, activityID, m.QuestionID)
		switch {
		case IsNoRows(err):
			fresh := completion.NewReviewItem(userID, activityID, m)
			item = &fresh
		case err != nil:
			return err
		default:
			item.Recur(m)
		}
		return upsertReviewItem(ctx, tx, item)
	})
}

// RecordReview applies a review outcome to the item's schedule.
func (s *ReviewStore) RecordReview(ctx context.Context, userID, activityID, questionID string, recalled bool, at time.Time) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		item, err := getReviewItemForUpdate(ctx, tx, userID, activityID, questionID)
		if IsNoRows(err) {
			return shared.ErrMistakeNotFound
		}
		if err != nil {
			return err
		}
		item.Review(recalled, at)
		return upsertReviewItem(ctx, tx, item)
	})
}

// DueForReview returns the due items ranked by review priority.
func (s *ReviewStore) DueForReview(ctx context.Context, userID string, at time.Time, limit int) ([]completion.ReviewItem, error) {
	query := `SELECT ` + reviewColumns + ` FROM review_items WHERE user_id = $1 AND next_review_at <= $2`

	rows, err := s.conn.Query(ctx, query, userID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to query review items: %w", err)
	}
	defer rows.Close()

	items := make([]completion.ReviewItem, 0)
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review items: %w", err)
	}
	return completion.RankForReview(items, at, limit), nil
}

func getReviewItemForUpdate(ctx context.Context, tx pgx.Tx, userID, activityID, questionID string) (*completion.ReviewItem, error) {
	query := `SELECT ` + reviewColumns + ` FROM review_items
		WHERE user_id = $1 AND activity_id = $2 AND question_id = $3 FOR UPDATE`
	return scanReviewItem(tx.QueryRow(ctx, query, userID, activityID, questionID))
}

func upsertReviewItem(ctx context.Context, tx pgx.Tx, it *completion.ReviewItem) error {
	query := `
		INSERT INTO review_items (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, activity_id, question_id) DO UPDATE SET
			topic_id = EXCLUDED.topic_id,
			incorrect_value = EXCLUDED.incorrect_value,
			correct_value = EXCLUDED.correct_value,
			explanation = EXCLUDED.explanation,
			occurrences = EXCLUDED.occurrences,
			repetitions = EXCLUDED.repetitions,
			easiness_factor = EXCLUDED.easiness_factor,
			interval_days = EXCLUDED.interval_days,
			next_review_at = EXCLUDED.next_review_at,
			last_reviewed_at = EXCLUDED.last_reviewed_at
	`
	_, err := tx.Exec(ctx, query,
		it.UserID,
		it.QuestionID,
		it.ActivityID,
		it.TopicID,
		it.IncorrectValue,
		it.CorrectValue,
		it.Explanation,
		it.Occurrences,
		it.Repetitions,
		it.EasinessFactor,
		it.IntervalDays,
		it.NextReviewAt,
		it.LastReviewedAt,
		it.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save review item: %w", err)
	}
	return nil
}

func scanReviewItem(row rowScanner) (*completion.ReviewItem, error) {
	var it completion.ReviewItem
	err := row.Scan(
		&it.UserID,
		&it.QuestionID,
		&it.ActivityID,
		&it.TopicID,
		&it.IncorrectValue,
		&it.CorrectValue,
		&it.Explanation,
		&it.Occurrences,
		&it.Repetitions,
		&it.EasinessFactor,
		&it.IntervalDays,
		&it.NextReviewAt,
		&it.LastReviewedAt,
		&it.CreatedAt,
	)
	if IsNoRows(err) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan review item: %w", err)
	}
	return &it, nil
}
