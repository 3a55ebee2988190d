package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// ReviewStore implements completion.MistakeStore.
// There is one review item per (user, activity, question).
type ReviewStore struct {
	mu    sync.RWMutex
	items map[string]completion.ReviewItem
}

// NewReviewStore creates an empty store.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{items: make(map[string]completion.ReviewItem)}
}

// RecordMistake adds a review item or makes an existing one recur.
func (s *ReviewStore) RecordMistake(_ context.Context, userID, activityID string, m completion.Mistake) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reviewKey(userID, activityID, m.QuestionID)
	if it, ok := s.items[key]; ok {
		it.Recur(m)
		s.items[key] = it
		return nil
	}
	s.items[key] = completion.NewReviewItem(userID, activityID, m)
	return nil
}

// RecordReview feeds an outcome into the item's schedule.
func (s *ReviewStore) RecordReview(_ context.Context, userID, activityID, questionID string, recalled bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reviewKey(userID, activityID, questionID)
	it, ok := s.items[key]
	if !ok {
		return shared.ErrMistakeNotFound
	}
	it.Review(recalled, at)
	s.items[key] = it
	return nil
}

// DueForReview returns the user's due items ranked for review.
func (s *ReviewStore) DueForReview(_ context.Context, userID string, at time.Time, limit int) ([]completion.ReviewItem, error) {
	s.mu.RLock()
	items := make([]completion.ReviewItem, 0)
	for _, it := range s.items {
		if it.UserID == userID {
			items = append(items, it)
		}
	}
	s.mu.RUnlock()

	return completion.RankForReview(items, at, limit), nil
}

func reviewKey(userID, activityID, questionID string) string {
	return userID + "\x00" + activityID + "\x00" + questionID
}
