package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-journey/internal/domain/completion"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func answers(topic string, correct, total int, each time.Duration) []completion.Answer {
	out := make([]completion.Answer, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, completion.Answer{
			QuestionID: topic + string(rune('a'+i)),
			TopicID:    topic,
			IsCorrect:  i < correct,
			TimeSpent:  each,
		})
	}
	return out
}

func terminal(activityID, subject string, score int, at time.Time) *completion.Record {
	done := at
	return &completion.Record{
		ActivityID:  activityID,
		SubjectID:   subject,
		Status:      completion.StatusCompleted,
		Score:       &score,
		CompletedAt: &done,
	}
}

func TestLevelFor(t *testing.T) {
	cases := map[int]PerformanceLevel{
		100: LevelExcellent,
		90:  LevelExcellent,
		89:  LevelGood,
		80:  LevelGood,
		75:  LevelSatisfactory,
		60:  LevelNeedsImprovement,
		59:  LevelNeedsAttention,
		0:   LevelNeedsAttention,
	}
	for score, want := range cases {
		assert.Equal(t, want, LevelFor(score), "score %d", score)
	}
}

func TestSummarizeCompletion_TopicPartition(t *testing.T) {
	var all []completion.Answer
	all = append(all, answers("algebra", 4, 5, 30*time.Second)...)
	all = append(all, answers("geometry", 2, 4, 30*time.Second)...)
	all = append(all, answers("statistics", 7, 10, 30*time.Second)...)

	score := 68
	done := t0
	r := &completion.Record{
		UserID:      "u",
		ActivityID:  "act-1",
		Status:      completion.StatusCompleted,
		Score:       &score,
		CompletedAt: &done,
		MaxScore:    19,
		Answers:     all,
	}

	s := SummarizeCompletion(r)

	assert.Equal(t, []string{"algebra"}, s.Strengths)
	assert.Equal(t, []string{"geometry"}, s.Weaknesses)
	require.Len(t, s.Topics, 3)
	assert.Equal(t, "statistics", s.Topics[2].TopicID)
	assert.InDelta(t, 70.0, s.Topics[2].Accuracy, 0.001)

	assert.Equal(t, 68, s.Score)
	assert.Equal(t, LevelNeedsImprovement, s.PerformanceLevel)
	assert.Equal(t, 13, s.Correct)
	assert.Equal(t, 19, s.Answered)
	assert.Contains(t, s.Recommendations, "Focus your next review on: geometry.")
}

func TestSummarizeCompletion_InProgressUsesLiveScore(t *testing.T) {
	r := &completion.Record{
		ActivityID: "act-1",
		Status:     completion.StatusInProgress,
		Answers:    answers("", 1, 2, time.Second),
	}

	s := SummarizeCompletion(r)

	assert.Equal(t, 50, s.Score)
	require.Len(t, s.Topics, 1)
	assert.Equal(t, "general", s.Topics[0].TopicID)
	assert.False(t, s.IsPerfect)
}

func TestSummarizeCompletion_SlowPacingTip(t *testing.T) {
	score := 100
	r := &completion.Record{
		Status:  completion.StatusPerfect,
		Score:   &score,
		Answers: answers("algebra", 2, 2, 3*time.Minute),
	}

	s := SummarizeCompletion(r)

	assert.Equal(t, 3*time.Minute, s.AvgTimePerAnswer)
	assert.True(t, s.IsPerfect)
	assert.Len(t, s.Recommendations, 2)
	assert.Contains(t, s.Recommendations[1], "two minutes per question")
}

func TestClassifyTrend(t *testing.T) {
	trend, first, second := ClassifyTrend([]int{50, 55, 52, 85, 90, 88})
	assert.Equal(t, TrendImproving, trend)
	assert.InDelta(t, 52.33, first, 0.01)
	assert.InDelta(t, 87.67, second, 0.01)

	trend, _, _ = ClassifyTrend([]int{90, 88, 60, 55})
	assert.Equal(t, TrendDeclining, trend)

	trend, _, _ = ClassifyTrend([]int{70, 72, 74, 73})
	assert.Equal(t, TrendStable, trend)

	trend, _, _ = ClassifyTrend([]int{40})
	assert.Equal(t, TrendStable, trend)

	trend, _, _ = ClassifyTrend(nil)
	assert.Equal(t, TrendStable, trend)
}

func TestProgressFeedback(t *testing.T) {
	records := []*completion.Record{
		terminal("a4", "math", 85, t0.Add(4*time.Hour)),
		terminal("a1", "math", 50, t0.Add(1*time.Hour)),
		terminal("a3", "math", 52, t0.Add(3*time.Hour)),
		terminal("x", "reading", 10, t0.Add(2*time.Hour)),
		terminal("a2", "math", 55, t0.Add(2*time.Hour)),
		terminal("a6", "math", 88, t0.Add(6*time.Hour)),
		terminal("a5", "math", 90, t0.Add(5*time.Hour)),
		{ActivityID: "open", SubjectID: "math", Status: completion.StatusInProgress},
	}

	rep := ProgressFeedback("u", "math", 0, records)

	assert.Equal(t, DefaultWindowDays, rep.WindowDays)
	assert.Equal(t, 6, rep.CompletedCount)
	assert.Equal(t, "a1", rep.Scores[0].ActivityID)
	assert.Equal(t, "a6", rep.Scores[5].ActivityID)
	assert.Equal(t, TrendImproving, rep.Trend)
	assert.InDelta(t, 70.0, rep.AverageScore, 0.001)
	assert.NotEmpty(t, rep.Message)
	assert.NotEmpty(t, rep.Suggestions)
}

func TestProgressFeedback_Empty(t *testing.T) {
	rep := ProgressFeedback("u", "math", 7, nil)

	assert.Equal(t, TrendStable, rep.Trend)
	assert.Equal(t, 0, rep.CompletedCount)
	assert.Equal(t, 7, rep.WindowDays)
	assert.NotEmpty(t, rep.Message)
}
