package feedback

import (
	"sort"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
)

// Trend is the direction of recent scores in a subject.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// TrendThreshold is the mean shift, in score points, needed to call a trend.
const TrendThreshold = 5.0

// DefaultWindowDays is used when the caller does not pick a window.
const DefaultWindowDays = 30

// ScorePoint is one terminal attempt on the trend timeline.
type ScorePoint struct {
	ActivityID  string    `json:"activity_id"`
	CompletedAt time.Time `json:"completed_at"`
	Score       int       `json:"score"`
}

// Report is the trend report for one subject.
type Report struct {
	UserID         string       `json:"user_id"`
	SubjectID      string       `json:"subject_id"`
	WindowDays     int          `json:"window_days"`
	CompletedCount int          `json:"completed_count"`
	Scores         []ScorePoint `json:"scores"`
	AverageScore   float64      `json:"average_score"`
	FirstHalfMean  float64      `json:"first_half_mean"`
	SecondHalfMean float64      `json:"second_half_mean"`
	Trend          Trend        `json:"trend"`
	Message        string       `json:"message"`
	Suggestions    []string     `json:"suggestions"`
}

// ClassifyTrend splits chronological scores into halves by index and compares
// their means. This is a two-window mean shift, an approximation of direction
// rather than a fitted slope. Fewer than two scores are always stable.
func ClassifyTrend(scores []int) (trend Trend, firstMean, secondMean float64) {
	if len(scores) < 2 {
		m := mean(scores)
		return TrendStable, m, m
	}
	mid := len(scores) / 2
	firstMean = mean(scores[:mid])
	secondMean = mean(scores[mid:])

	switch diff := secondMean - firstMean; {
	case diff > TrendThreshold:
		trend = TrendImproving
	case diff < -TrendThreshold:
		trend = TrendDeclining
	default:
		trend = TrendStable
	}
	return trend, firstMean, secondMean
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

// ProgressFeedback builds the trend report from a user's terminal records in
// one subject. Records outside the subject or not terminal are ignored.
func ProgressFeedback(userID, subjectID string, windowDays int, records []*completion.Record) Report {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	points := make([]ScorePoint, 0, len(records))
	for _, r := range records {
		if r == nil || !r.IsTerminal() || r.CompletedAt == nil {
			continue
		}
		if subjectID != "" && r.SubjectID != subjectID {
			continue
		}
		points = append(points, ScorePoint{
			ActivityID:  r.ActivityID,
			CompletedAt: *r.CompletedAt,
			Score:       r.ScoreValue(),
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].CompletedAt.Before(points[j].CompletedAt)
	})

	scores := make([]int, len(points))
	for i, p := range points {
		scores[i] = p.Score
	}

	trend, first, second := ClassifyTrend(scores)
	avg := mean(scores)

	report := Report{
		UserID:         userID,
		SubjectID:      subjectID,
		WindowDays:     windowDays,
		CompletedCount: len(points),
		Scores:         points,
		AverageScore:   avg,
		FirstHalfMean:  first,
		SecondHalfMean: second,
		Trend:          trend,
	}

	if len(points) == 0 {
		report.Message = "No completed activities in this subject yet. Finish a few to see your trend."
		report.Suggestions = []string{"Start with the next unlocked activity in this subject."}
		return report
	}

	key := trendKey{trend: trend, band: bandFor(avg)}
	report.Message = trendMessages[key]
	report.Suggestions = append([]string{}, trendSuggestions[key]...)
	return report
}

// ───────────────────────────────────────────────────────────────────────────
// Messages keyed by trend × average band
// ───────────────────────────────────────────────────────────────────────────

type scoreBand string

const (
	bandHigh   scoreBand = "high"
	bandMedium scoreBand = "medium"
	bandLow    scoreBand = "low"
)

func bandFor(avg float64) scoreBand {
	switch {
	case avg >= 80:
		return bandHigh
	case avg >= 60:
		return bandMedium
	default:
		return bandLow
	}
}

type trendKey struct {
	trend Trend
	band  scoreBand
}

var trendMessages = map[trendKey]string{
	{TrendImproving, bandHigh}:   "Excellent momentum. Your scores keep climbing at a high level.",
	{TrendImproving, bandMedium}: "You are improving steadily. Keep the routine going.",
	{TrendImproving, bandLow}:    "Scores are moving up. The foundations are starting to click.",
	{TrendStable, bandHigh}:      "Consistently strong results. You have this subject under control.",
	{TrendStable, bandMedium}:    "Your results are steady. A push on weak topics will lift them.",
	{TrendStable, bandLow}:       "Scores have plateaued at a low level. Time to change the approach.",
	{TrendDeclining, bandHigh}:   "Still strong overall, but recent scores dipped.",
	{TrendDeclining, bandMedium}: "Recent scores are slipping. Review what changed.",
	{TrendDeclining, bandLow}:    "Scores are dropping. Let's get you back on track.",
}

var trendSuggestions = map[trendKey][]string{
	{TrendImproving, bandHigh}: {
		"Take on challenge activities in this subject.",
		"Keep your streak alive to lock in the gains.",
	},
	{TrendImproving, bandMedium}: {
		"Keep practicing at the same pace.",
		"Review older mistakes so they do not come back.",
	},
	{TrendImproving, bandLow}: {
		"Stay with lessons and practice sets before assessments.",
		"Review every mistake the day after you make it.",
	},
	{TrendStable, bandHigh}: {
		"Try harder activities to keep growing.",
	},
	{TrendStable, bandMedium}: {
		"Target your weakest topics in the next review session.",
		"Increase your daily goal by 10 minutes.",
	},
	{TrendStable, bandLow}: {
		"Go back to the lessons for this subject.",
		"Join a live class to ask questions.",
		"Work through your mistake review list daily.",
	},
	{TrendDeclining, bandHigh}: {
		"Check whether recent activities covered new topics and review them.",
	},
	{TrendDeclining, bandMedium}: {
		"Slow down and review mistakes before new activities.",
		"Make sure you are meeting your daily goal.",
	},
	{TrendDeclining, bandLow}: {
		"Pause new material and revisit the lessons you found hardest.",
		"Ask an instructor for help this week.",
		"Use short daily sessions to rebuild the habit.",
	},
}
