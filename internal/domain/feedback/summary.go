// Package feedback derives read-only feedback from completion history:
// per-attempt summaries and rolling trend reports.
package feedback

import (
	"sort"
	"strings"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// PerformanceLevel buckets a score.
type PerformanceLevel string

const (
	LevelExcellent        PerformanceLevel = "excellent"
	LevelGood             PerformanceLevel = "good"
	LevelSatisfactory     PerformanceLevel = "satisfactory"
	LevelNeedsImprovement PerformanceLevel = "needs_improvement"
	LevelNeedsAttention   PerformanceLevel = "needs_attention"
)

// LevelFor maps a 0..100 score onto a performance level.
func LevelFor(score int) PerformanceLevel {
	switch {
	case score >= 90:
		return LevelExcellent
	case score >= 80:
		return LevelGood
	case score >= 70:
		return LevelSatisfactory
	case score >= 60:
		return LevelNeedsImprovement
	default:
		return LevelNeedsAttention
	}
}

const (
	// StrengthThreshold is the topic accuracy (percent) at or above which a topic is a strength.
	StrengthThreshold = 80
	// WeaknessThreshold is the topic accuracy (percent) below which a topic is a weakness.
	WeaknessThreshold = 60
	// SlowAnswerThreshold is the mean time per question that triggers a pacing tip.
	SlowAnswerThreshold = 120 * time.Second

	// generalTopic groups answers whose question carries no topic.
	generalTopic = "general"
)

// TopicAccuracy is the share of correct answers for one topic.
type TopicAccuracy struct {
	TopicID  string  `json:"topic_id"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// IsStrength reports accuracy >= 80%.
func (t TopicAccuracy) IsStrength() bool {
	return t.Total > 0 && t.Correct*100 >= StrengthThreshold*t.Total
}

// IsWeakness reports accuracy < 60%.
func (t TopicAccuracy) IsWeakness() bool {
	return t.Total > 0 && t.Correct*100 < WeaknessThreshold*t.Total
}

// Summary describes one attempt.
type Summary struct {
	UserID           string            `json:"user_id"`
	ActivityID       string            `json:"activity_id"`
	Status           completion.Status `json:"status"`
	Score            int               `json:"score"`
	PerformanceLevel PerformanceLevel  `json:"performance_level"`
	Correct          int               `json:"correct"`
	Answered         int               `json:"answered"`
	MaxScore         int               `json:"max_score"`
	IsPerfect        bool              `json:"is_perfect"`
	XPEarned         int               `json:"xp_earned"`
	TimeSpent        time.Duration     `json:"time_spent"`
	AvgTimePerAnswer time.Duration     `json:"avg_time_per_answer"`
	MistakeCount     int               `json:"mistake_count"`
	Topics           []TopicAccuracy   `json:"topics"`
	Strengths        []string          `json:"strengths"`
	Weaknesses       []string          `json:"weaknesses"`
	Recommendations  []string          `json:"recommendations"`
}

// TopicBreakdown groups answers by question topic. Topics are sorted by id.
func TopicBreakdown(answers []completion.Answer) []TopicAccuracy {
	byTopic := make(map[string]*TopicAccuracy)
	for _, a := range answers {
		topic := a.TopicID
		if topic == "" {
			topic = generalTopic
		}
		t, ok := byTopic[topic]
		if !ok {
			t = &TopicAccuracy{TopicID: topic}
			byTopic[topic] = t
		}
		t.Total++
		if a.IsCorrect {
			t.Correct++
		}
	}

	out := make([]TopicAccuracy, 0, len(byTopic))
	for _, t := range byTopic {
		t.Accuracy = float64(t.Correct) * 100 / float64(t.Total)
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out
}

// SummarizeCompletion builds the summary of a record. It works on records in
// any status; for non-terminal records the score is computed from the answers
// submitted so far.
func SummarizeCompletion(r *completion.Record) Summary {
	correct, total := r.Tally()

	score := r.ScoreValue()
	if !r.IsTerminal() {
		score = shared.NewScore(correct, total).Int()
	}

	var spent time.Duration
	for _, a := range r.Answers {
		spent += a.TimeSpent
	}
	var avg time.Duration
	if total > 0 {
		avg = spent / time.Duration(total)
	}

	s := Summary{
		UserID:           r.UserID,
		ActivityID:       r.ActivityID,
		Status:           r.Status,
		Score:            score,
		PerformanceLevel: LevelFor(score),
		Correct:          correct,
		Answered:         total,
		MaxScore:         r.MaxScore,
		IsPerfect:        r.Status == completion.StatusPerfect,
		XPEarned:         r.XPEarned,
		TimeSpent:        spent,
		AvgTimePerAnswer: avg,
		MistakeCount:     len(r.Mistakes),
		Topics:           TopicBreakdown(r.Answers),
		Strengths:        []string{},
		Weaknesses:       []string{},
	}

	for _, t := range s.Topics {
		switch {
		case t.IsStrength():
			s.Strengths = append(s.Strengths, t.TopicID)
		case t.IsWeakness():
			s.Weaknesses = append(s.Weaknesses, t.TopicID)
		}
	}

	s.Recommendations = recommend(s.PerformanceLevel, s.Weaknesses, avg)
	return s
}

var bandRecommendations = map[PerformanceLevel][]string{
	LevelExcellent: {
		"Outstanding work. Try a challenge activity to stretch further.",
	},
	LevelGood: {
		"Great job. Review the questions you missed to reach the next level.",
	},
	LevelSatisfactory: {
		"Solid effort. Revisit the lesson notes before the next practice set.",
		"Redo the questions you missed once they come up for review.",
	},
	LevelNeedsImprovement: {
		"Review the core concepts of this activity and retry a practice set.",
		"Work through your mistake review list before moving on.",
	},
	LevelNeedsAttention: {
		"Go back to the lesson for this activity before continuing.",
		"Join the next live class or ask an instructor for help with this material.",
	},
}

func recommend(level PerformanceLevel, weaknesses []string, avg time.Duration) []string {
	recs := append([]string{}, bandRecommendations[level]...)
	if len(weaknesses) > 0 {
		recs = append(recs, "Focus your next review on: "+strings.Join(weaknesses, ", ")+".")
	}
	if avg > SlowAnswerThreshold {
		recs = append(recs, "You spent more than two minutes per question on average. Practice timed sets to build speed.")
	}
	return recs
}
