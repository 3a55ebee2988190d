package completion

import (
	"context"
	"time"
)

// Repository persists completion records.
// Implementations live in the infrastructure layer.
type Repository interface {
	// Get returns the record for (userID, activityID).
	// Returns shared.ErrRecordNotFound if no record exists.
	Get(ctx context.Context, userID, activityID string) (*Record, error)

	// Save inserts or replaces the record keyed by (UserID, ActivityID).
	Save(ctx context.Context, record *Record) error

	// ListByUser returns every record of a user, oldest first.
	ListByUser(ctx context.Context, userID string) ([]*Record, error)

	// ListCompleted returns the terminal records of a user in a subject that
	// completed at or after since, ordered by CompletedAt ascending.
	// An empty subjectID matches every subject.
	ListCompleted(ctx context.Context, userID, subjectID string, since time.Time) ([]*Record, error)
}

// MistakeStore is the spaced-repetition collaborator fed by mistake entries.
// Items are keyed by (user, activity, question): question ids are only
// unique inside their activity.
type MistakeStore interface {
	// RecordMistake adds or refreshes a review item for the mistake.
	RecordMistake(ctx context.Context, userID, activityID string, mistake Mistake) error

	// RecordReview feeds a review outcome into the item's schedule.
	// Returns shared.ErrMistakeNotFound if no item exists.
	RecordReview(ctx context.Context, userID, activityID, questionID string, recalled bool, at time.Time) error

	// DueForReview returns items due at 'at', ranked by review priority.
	DueForReview(ctx context.Context, userID string, at time.Time, limit int) ([]ReviewItem, error)
}

// Locker serializes mutations of one record across concurrent requests.
type Locker interface {
	// Lock blocks until the key is held or ctx is done.
	// The returned func releases the lock.
	Lock(ctx context.Context, key string) (func(), error)
}

// LockKey builds the serialization key of a record.
func LockKey(userID, activityID string) string {
	return "completion:" + userID + ":" + activityID
}
