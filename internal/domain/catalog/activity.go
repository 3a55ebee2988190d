// Package catalog describes the schedulable learning units a journey is built
// from, together with the read-only collaborators that supply them.
package catalog

import (
	"sort"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ACTIVITY TYPE
// ═══════════════════════════════════════════════════════════════════════════

// ActivityType classifies an activity.
type ActivityType string

const (
	TypeLesson     ActivityType = "lesson"
	TypePractice   ActivityType = "practice"
	TypeAssessment ActivityType = "assessment"
	TypeReview     ActivityType = "review"
	TypeClass      ActivityType = "class"
	TypeChallenge  ActivityType = "challenge"
)

// IsValid checks if the activity type is known.
func (t ActivityType) IsValid() bool {
	switch t {
	case TypeLesson, TypePractice, TypeAssessment, TypeReview, TypeClass, TypeChallenge:
		return true
	}
	return false
}

// Difficulty is the author-assigned difficulty of an activity.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ═══════════════════════════════════════════════════════════════════════════
// ACTIVITY
// ═══════════════════════════════════════════════════════════════════════════

// Activity is a single schedulable unit of learning work.
// Activities are immutable for the lifetime of a plan period.
type Activity struct {
	ID            string        `yaml:"id" json:"id"`
	PlanID        string        `yaml:"plan_id" json:"plan_id"`
	Title         string        `yaml:"title" json:"title"`
	Week          int           `yaml:"week" json:"week"`
	DayOfWeek     int           `yaml:"day" json:"day_of_week"`
	ScheduledDate time.Time     `yaml:"scheduled_date" json:"scheduled_date"`
	Type          ActivityType  `yaml:"type" json:"type"`
	SubjectID     string        `yaml:"subject" json:"subject_id"`
	TopicIDs      []string      `yaml:"topics" json:"topic_ids"`
	Duration      time.Duration `yaml:"duration" json:"duration"`
	QuestionCount int           `yaml:"question_count" json:"question_count"`
	Difficulty    Difficulty    `yaml:"difficulty" json:"difficulty"`
	XPReward      int           `yaml:"xp_reward" json:"xp_reward"`
	Required      bool          `yaml:"required" json:"required"`
	Order         int           `yaml:"order" json:"order"`
}

// Validate checks the activity fields the engine relies on.
func (a Activity) Validate() error {
	var problems []string
	if strings.TrimSpace(a.ID) == "" {
		problems = append(problems, "id is required")
	}
	if a.Week < 1 {
		problems = append(problems, "week must be >= 1")
	}
	if !a.Type.IsValid() {
		problems = append(problems, "unknown type "+string(a.Type))
	}
	if a.QuestionCount < 0 {
		problems = append(problems, "question_count cannot be negative")
	}
	if a.XPReward < 0 {
		problems = append(problems, "xp_reward cannot be negative")
	}
	if len(problems) > 0 {
		return &ValidationError{ActivityID: a.ID, Problems: problems}
	}
	return nil
}

// HasQuestions reports whether the activity is scored by answers.
func (a Activity) HasQuestions() bool {
	return a.QuestionCount > 0
}

// ValidationError lists the problems found in a catalog entry.
type ValidationError struct {
	ActivityID string
	Problems   []string
}

func (e *ValidationError) Error() string {
	return "activity " + e.ActivityID + ": " + strings.Join(e.Problems, "; ")
}

// Less orders activities by (week, day, order, id).
func Less(a, b Activity) bool {
	if a.Week != b.Week {
		return a.Week < b.Week
	}
	if a.DayOfWeek != b.DayOfWeek {
		return a.DayOfWeek < b.DayOfWeek
	}
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.ID < b.ID
}

// SortActivities sorts activities in catalog order in place.
func SortActivities(list []Activity) {
	sort.SliceStable(list, func(i, j int) bool { return Less(list[i], list[j]) })
}

// InWeek returns the activities scheduled in the given week, in catalog order.
func InWeek(list []Activity, week int) []Activity {
	var out []Activity
	for _, a := range list {
		if a.Week == week {
			out = append(out, a)
		}
	}
	SortActivities(out)
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// QUESTION & PLAN
// ═══════════════════════════════════════════════════════════════════════════

// Question is the canonical answer for one question of an activity.
type Question struct {
	ID           string `yaml:"id" json:"id"`
	ActivityID   string `yaml:"activity_id" json:"activity_id"`
	TopicID      string `yaml:"topic" json:"topic_id"`
	CorrectValue string `yaml:"answer" json:"correct_value"`
	Explanation  string `yaml:"explanation" json:"explanation"`
}

// IsCorrect checks a submitted value by exact match.
func (q Question) IsCorrect(value string) bool {
	return value == q.CorrectValue
}

// Plan is a study plan a user can be enrolled in.
type Plan struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	StartDate time.Time `yaml:"start_date" json:"start_date"`
	Weeks     int       `yaml:"weeks" json:"weeks"`
}
