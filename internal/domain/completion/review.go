package completion

import (
	"sort"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// SPACED REPETITION
// Review items follow the SuperMemo-2 schedule: a recalled item moves out
// along a growing interval, a forgotten one comes back tomorrow.
// ═══════════════════════════════════════════════════════════════════════════

const (
	// DefaultEasiness is the SM-2 starting easiness factor.
	DefaultEasiness = 2.5

	// MinEasiness is the SM-2 floor for the easiness factor.
	MinEasiness = 1.3

	// MaxIntervalDays caps the review interval at a year.
	MaxIntervalDays = 365
)

// initialIntervals are the first review intervals in days.
var initialIntervals = []int{1, 3, 7, 14, 30}

// ReviewItem is the review-store view of a question the learner got wrong.
type ReviewItem struct {
	UserID         string     `json:"user_id"`
	QuestionID     string     `json:"question_id"`
	ActivityID     string     `json:"activity_id"`
	TopicID        string     `json:"topic_id,omitempty"`
	IncorrectValue string     `json:"incorrect_value"`
	CorrectValue   string     `json:"correct_value"`
	Explanation    string     `json:"explanation,omitempty"`
	Occurrences    int        `json:"occurrences"`
	Repetitions    int        `json:"repetitions"`
	EasinessFactor float64    `json:"easiness_factor"`
	IntervalDays   int        `json:"interval_days"`
	NextReviewAt   time.Time  `json:"next_review_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewReviewItem creates an item that is due immediately.
func NewReviewItem(userID, activityID string, m Mistake) ReviewItem {
	return ReviewItem{
		UserID:         userID,
		QuestionID:     m.QuestionID,
		ActivityID:     activityID,
		TopicID:        m.TopicID,
		IncorrectValue: m.IncorrectValue,
		CorrectValue:   m.CorrectValue,
		Explanation:    m.Explanation,
		Occurrences:    1,
		EasinessFactor: DefaultEasiness,
		NextReviewAt:   m.RecordedAt,
		CreatedAt:      m.RecordedAt,
	}
}

// Recur registers the same question being missed again. The item is reset
// and becomes due immediately.
func (it *ReviewItem) Recur(m Mistake) {
	it.Occurrences++
	it.IncorrectValue = m.IncorrectValue
	it.Repetitions = 0
	it.IntervalDays = 0
	it.NextReviewAt = m.RecordedAt
	it.EasinessFactor = clampEasiness(it.EasinessFactor - 0.2)
}

// Review applies one review outcome.
// recalled maps to SM-2 quality 4, forgotten to quality 1.
func (it *ReviewItem) Review(recalled bool, at time.Time) {
	quality := 1
	if recalled {
		quality = 4
	}
	q := float64(5 - quality)
	it.EasinessFactor = clampEasiness(it.EasinessFactor + (0.1 - q*(0.08+q*0.02)))

	if recalled {
		if it.Repetitions < len(initialIntervals) {
			it.IntervalDays = initialIntervals[it.Repetitions]
		} else {
			it.IntervalDays = int(float64(it.IntervalDays) * it.EasinessFactor)
		}
		if it.IntervalDays > MaxIntervalDays {
			it.IntervalDays = MaxIntervalDays
		}
		it.Repetitions++
	} else {
		it.Repetitions = 0
		it.IntervalDays = 1
	}

	reviewed := at
	it.LastReviewedAt = &reviewed
	it.NextReviewAt = at.AddDate(0, 0, it.IntervalDays)
}

// IsDue reports whether the item should be reviewed at 'at'.
func (it ReviewItem) IsDue(at time.Time) bool {
	return !it.NextReviewAt.After(at)
}

func clampEasiness(ef float64) float64 {
	if ef < MinEasiness {
		return MinEasiness
	}
	return ef
}

// RankForReview filters due items and orders them by priority:
//  1. never reviewed first
//  2. missed more often
//  3. lower easiness (harder)
//  4. more overdue
func RankForReview(items []ReviewItem, at time.Time, limit int) []ReviewItem {
	due := make([]ReviewItem, 0, len(items))
	for _, it := range items {
		if it.IsDue(at) {
			due = append(due, it)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		aNew, bNew := a.LastReviewedAt == nil, b.LastReviewedAt == nil
		if aNew != bNew {
			return aNew
		}
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		if a.EasinessFactor != b.EasinessFactor {
			return a.EasinessFactor < b.EasinessFactor
		}
		if !a.NextReviewAt.Equal(b.NextReviewAt) {
			return a.NextReviewAt.Before(b.NextReviewAt)
		}
		return a.QuestionID < b.QuestionID
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}
