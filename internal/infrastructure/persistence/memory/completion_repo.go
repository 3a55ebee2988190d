// Package memory holds process-local repositories. They back the "memory"
// storage driver and the application tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// CompletionRepository implements completion.Repository.
// Records are copied on the way in and out so callers never share state.
type CompletionRepository struct {
	mu      sync.RWMutex
	records map[string]*completion.Record
}

// NewCompletionRepository creates an empty repository.
func NewCompletionRepository() *CompletionRepository {
	return &CompletionRepository{records: make(map[string]*completion.Record)}
}

func recordKey(userID, activityID string) string {
	return userID + "\x00" + activityID
}

// Get returns the record for (userID, activityID).
func (r *CompletionRepository) Get(_ context.Context, userID, activityID string) (*completion.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[recordKey(userID, activityID)]
	if !ok {
		return nil, shared.ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

// Save upserts the record.
func (r *CompletionRepository) Save(_ context.Context, record *completion.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[recordKey(record.UserID, record.ActivityID)] = cloneRecord(record)
	return nil
}

// ListByUser returns every record of a user, oldest first.
func (r *CompletionRepository) ListByUser(_ context.Context, userID string) ([]*completion.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*completion.Record, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ActivityID < out[j].ActivityID
	})
	return out, nil
}

// ListCompleted returns terminal records completed at or after since.
func (r *CompletionRepository) ListCompleted(_ context.Context, userID, subjectID string, since time.Time) ([]*completion.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*completion.Record, 0)
	for _, rec := range r.records {
		if rec.UserID != userID || !rec.IsTerminal() || rec.CompletedAt == nil {
			continue
		}
		if subjectID != "" && rec.SubjectID != subjectID {
			continue
		}
		if rec.CompletedAt.Before(since) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(*out[j].CompletedAt)
	})
	return out, nil
}

func cloneRecord(r *completion.Record) *completion.Record {
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.Score != nil {
		s := *r.Score
		c.Score = &s
	}
	c.Answers = append([]completion.Answer{}, r.Answers...)
	c.Mistakes = make([]completion.Mistake, len(r.Mistakes))
	for i, m := range r.Mistakes {
		c.Mistakes[i] = m
		if m.ReviewedAt != nil {
			t := *m.ReviewedAt
			c.Mistakes[i].ReviewedAt = &t
		}
	}
	return &c
}
