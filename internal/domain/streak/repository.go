package streak

import (
	"context"
	"time"
)

// DailyCount - количество засчитанных активностей за один день.
type DailyCount struct {
	// Day - начало дня в опорном часовом поясе.
	Day time.Time `json:"day"`

	// Count - количество активностей.
	Count int `json:"count"`
}

// Repository определяет хранилище серий.
type Repository interface {
	// Get возвращает состояние серии.
	// Возвращает shared.ErrStreakNotFound, если серии ещё нет.
	Get(ctx context.Context, userID string) (*State, error)

	// Save сохраняет состояние (upsert).
	Save(ctx context.Context, state *State) error

	// IncrementDailyCount увеличивает счётчик активностей за день.
	IncrementDailyCount(ctx context.Context, userID string, day time.Time) error

	// DailyCounts возвращает счётчики за дни в диапазоне [from, to].
	// Дни без активности не возвращаются.
	DailyCounts(ctx context.Context, userID string, from, to time.Time) ([]DailyCount, error)
}

// FillDays раскладывает счётчики по списку дней, подставляя нули.
func FillDays(days []time.Time, counts []DailyCount, loc *time.Location) []DailyCount {
	byDay := make(map[string]int, len(counts))
	for _, c := range counts {
		byDay[c.Day.In(loc).Format("2006-01-02")] += c.Count
	}
	out := make([]DailyCount, 0, len(days))
	for _, d := range days {
		out = append(out, DailyCount{Day: d, Count: byDay[d.In(loc).Format("2006-01-02")]})
	}
	return out
}
