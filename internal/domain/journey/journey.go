// Package journey ведёт прогресс пользователя по плану: открытые активности,
// выполненные активности, XP и уровень, дневную цель.
// Чистый доменный слой без внешних зависимостей.
package journey

import (
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOURNEY TYPE
// ══════════════════════════════════════════════════════════════════════════════

// Type - режим прохождения плана.
type Type string

const (
	// TypeLinear - следующая активность открывается только после выполнения открытых.
	TypeLinear Type = "linear"

	// TypeFlexible - открытие активностей не зависит от выполнения.
	TypeFlexible Type = "flexible"
)

// ParseType проверяет и возвращает режим.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeLinear, TypeFlexible:
		return Type(s), nil
	default:
		return "", shared.ErrInvalidType
	}
}

// Границы дневной цели в минутах.
const (
	MinDailyGoal     = 10
	MaxDailyGoal     = 120
	DefaultDailyGoal = 30
)

// ══════════════════════════════════════════════════════════════════════════════
// STATE
// ══════════════════════════════════════════════════════════════════════════════

// CompletedActivity - итог выполнения одной активности.
type CompletedActivity struct {
	ActivityID  string        `json:"activity_id"`
	CompletedAt time.Time     `json:"completed_at"`
	Score       int           `json:"score"`
	TimeSpent   time.Duration `json:"time_spent"`
	XPEarned    int           `json:"xp_earned"`
	IsPerfect   bool          `json:"is_perfect"`
}

// WeekProgress - сводка по неделе плана.
type WeekProgress struct {
	Week      int `json:"week"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
	XP        int `json:"xp"`
}

// State - состояние прохождения плана пользователем.
type State struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// PlanID - план, в который пользователь записан.
	PlanID string `json:"plan_id"`

	// CurrentWeek - текущая неделя плана.
	CurrentWeek int `json:"current_week"`

	// Type - режим прохождения.
	Type Type `json:"journey_type"`

	// TotalXP - накопленный XP.
	TotalXP int `json:"total_xp"`

	// Level - уровень, floor(TotalXP/100)+1.
	Level int `json:"level"`

	// Completed - выполненные активности, не более одной записи на активность.
	Completed []CompletedActivity `json:"completed_activities"`

	// Unlocked - открытые активности в порядке открытия. Никогда не сокращается.
	Unlocked []string `json:"unlocked_activities"`

	// CurrentActivityID - активность, на которой сейчас пользователь.
	CurrentActivityID string `json:"current_activity_id,omitempty"`

	// WeeklyProgress - сводка по неделям.
	WeeklyProgress []WeekProgress `json:"weekly_progress"`

	// DailyGoalMinutes - дневная цель в минутах (10-120).
	DailyGoalMinutes int `json:"daily_goal_minutes"`

	// DailyGoalsMet - сколько раз дневная цель была выполнена.
	DailyGoalsMet int `json:"daily_goals_met"`

	// GoalDay - день, к которому относится MinutesToday.
	GoalDay *time.Time `json:"goal_day,omitempty"`

	// MinutesToday - минуты занятий за GoalDay.
	MinutesToday int `json:"minutes_today"`

	// CreatedAt / UpdatedAt - служебные метки времени.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState создаёт путь для пользователя, записанного в план.
// Первая активность плана открывается сразу.
func NewState(userID string, plan catalog.Plan, activities []catalog.Activity, now time.Time) *State {
	s := &State{
		UserID:           userID,
		PlanID:           plan.ID,
		CurrentWeek:      1,
		Type:             TypeLinear,
		TotalXP:          0,
		Level:            shared.MinLevel.Int(),
		Completed:        []CompletedActivity{},
		Unlocked:         []string{},
		DailyGoalMinutes: DefaultDailyGoal,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	ordered := sorted(activities)
	if len(ordered) > 0 {
		first := ordered[0]
		s.CurrentWeek = first.Week
		s.Unlocked = append(s.Unlocked, first.ID)
		s.CurrentActivityID = first.ID
	}
	s.recomputeWeeks(ordered)
	return s
}

func sorted(activities []catalog.Activity) []catalog.Activity {
	out := make([]catalog.Activity, len(activities))
	copy(out, activities)
	catalog.SortActivities(out)
	return out
}

// IsUnlocked проверяет, открыта ли активность.
func (s *State) IsUnlocked(activityID string) bool {
	for _, id := range s.Unlocked {
		if id == activityID {
			return true
		}
	}
	return false
}

// CompletedEntry возвращает запись о выполнении активности.
func (s *State) CompletedEntry(activityID string) (CompletedActivity, bool) {
	for _, c := range s.Completed {
		if c.ActivityID == activityID {
			return c, true
		}
	}
	return CompletedActivity{}, false
}

func (s *State) unlock(activityID string) bool {
	if s.IsUnlocked(activityID) {
		return false
	}
	s.Unlocked = append(s.Unlocked, activityID)
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION
// ══════════════════════════════════════════════════════════════════════════════

// RecordResult - что изменилось после учёта выполнения.
type RecordResult struct {
	OldLevel     int  `json:"old_level"`
	NewLevel     int  `json:"new_level"`
	LeveledUp    bool `json:"leveled_up"`
	WeekAdvanced bool `json:"week_advanced"`
	GoalMet      bool `json:"goal_met"`
	Duplicate    bool `json:"duplicate"`
}

// RecordCompletion учитывает выполнение активности.
// Запись заменяет предыдущую для той же активности; XP добавляется, уровень
// пересчитывается и никогда не уменьшается. Повторная доставка того же
// выполнения (та же активность и то же время) ничего не меняет.
func (s *State) RecordCompletion(c CompletedActivity, activities []catalog.Activity, loc *time.Location) RecordResult {
	result := RecordResult{OldLevel: s.Level, NewLevel: s.Level}

	replaced := false
	for i := range s.Completed {
		if s.Completed[i].ActivityID != c.ActivityID {
			continue
		}
		if s.Completed[i].CompletedAt.Equal(c.CompletedAt) {
			result.Duplicate = true
			return result
		}
		s.Completed[i] = c
		replaced = true
		break
	}
	if !replaced {
		s.Completed = append(s.Completed, c)
	}
	s.unlock(c.ActivityID)

	s.TotalXP = shared.XP(s.TotalXP).Add(c.XPEarned).Int()
	if lvl := shared.XP(s.TotalXP).Level().Int(); lvl > s.Level {
		s.Level = lvl
	}
	result.NewLevel = s.Level
	result.LeveledUp = result.NewLevel > result.OldLevel

	result.GoalMet = s.trackDailyGoal(c, loc)

	ordered := sorted(activities)
	result.WeekAdvanced = s.advanceWeek(ordered)
	s.recomputeWeeks(ordered)
	s.CurrentActivityID = s.nextOpenActivity(ordered)
	s.UpdatedAt = c.CompletedAt
	return result
}

// trackDailyGoal добавляет минуты к текущему дню и отмечает выполнение цели.
func (s *State) trackDailyGoal(c CompletedActivity, loc *time.Location) bool {
	if loc == nil {
		loc = timeutil.AlmatyTZ
	}
	day := timeutil.StartOfDay(c.CompletedAt, loc)
	if s.GoalDay == nil || !s.GoalDay.Equal(day) {
		s.GoalDay = &day
		s.MinutesToday = 0
	}
	before := s.MinutesToday
	s.MinutesToday += int(c.TimeSpent / time.Minute)
	if before < s.DailyGoalMinutes && s.MinutesToday >= s.DailyGoalMinutes {
		s.DailyGoalsMet++
		return true
	}
	return false
}

// advanceWeek переводит на следующую неделю, когда все обязательные
// активности текущей недели выполнены.
func (s *State) advanceWeek(ordered []catalog.Activity) bool {
	week := catalog.InWeek(ordered, s.CurrentWeek)
	if len(week) == 0 {
		return false
	}

	required := make([]catalog.Activity, 0, len(week))
	for _, a := range week {
		if a.Required {
			required = append(required, a)
		}
	}
	if len(required) == 0 {
		required = week
	}
	for _, a := range required {
		if _, ok := s.CompletedEntry(a.ID); !ok {
			return false
		}
	}

	for _, a := range ordered {
		if a.Week > s.CurrentWeek {
			s.CurrentWeek = a.Week
			return true
		}
	}
	return false
}

// recomputeWeeks пересчитывает сводку по неделям.
func (s *State) recomputeWeeks(ordered []catalog.Activity) {
	byWeek := make(map[int]*WeekProgress)
	weeks := make([]int, 0)
	for _, a := range ordered {
		wp, ok := byWeek[a.Week]
		if !ok {
			wp = &WeekProgress{Week: a.Week}
			byWeek[a.Week] = wp
			weeks = append(weeks, a.Week)
		}
		wp.Total++
		if c, done := s.CompletedEntry(a.ID); done {
			wp.Completed++
			wp.XP += c.XPEarned
		}
	}

	s.WeeklyProgress = make([]WeekProgress, 0, len(weeks))
	for _, w := range weeks {
		s.WeeklyProgress = append(s.WeeklyProgress, *byWeek[w])
	}
}

// nextOpenActivity - первая открытая и ещё не выполненная активность.
func (s *State) nextOpenActivity(ordered []catalog.Activity) string {
	for _, a := range ordered {
		if !s.IsUnlocked(a.ID) {
			continue
		}
		if _, done := s.CompletedEntry(a.ID); !done {
			return a.ID
		}
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK POLICY
// ══════════════════════════════════════════════════════════════════════════════

// UnlockNext открывает следующую активность в порядке каталога
// (неделя, день, порядок) - не более одной за вызов.
// В режиме linear открытие возможно только когда выполнено не меньше
// активностей, чем открыто. В режиме flexible ограничения нет.
func (s *State) UnlockNext(activities []catalog.Activity, now time.Time) (string, bool) {
	if s.Type == TypeLinear && len(s.Completed) < len(s.Unlocked) {
		return "", false
	}

	ordered := sorted(activities)
	for _, a := range ordered {
		if s.IsUnlocked(a.ID) {
			continue
		}
		s.unlock(a.ID)
		if s.CurrentActivityID == "" {
			s.CurrentActivityID = a.ID
		}
		s.UpdatedAt = now
		return a.ID, true
	}
	return "", false
}

// SwitchType меняет режим. Переход в flexible открывает все активности
// текущей недели сразу; ранее открытые активности остаются открытыми.
// Возвращает идентификаторы, открытые этим вызовом.
func (s *State) SwitchType(raw string, activities []catalog.Activity, now time.Time) ([]string, error) {
	t, err := ParseType(raw)
	if err != nil {
		return nil, err
	}
	s.Type = t
	s.UpdatedAt = now

	if t != TypeFlexible {
		return nil, nil
	}

	var opened []string
	for _, a := range catalog.InWeek(activities, s.CurrentWeek) {
		if s.unlock(a.ID) {
			opened = append(opened, a.ID)
		}
	}
	if s.CurrentActivityID == "" {
		s.CurrentActivityID = s.nextOpenActivity(sorted(activities))
	}
	return opened, nil
}

// SetDailyGoal задаёт дневную цель в минутах.
func (s *State) SetDailyGoal(minutes int, now time.Time) error {
	if minutes < MinDailyGoal || minutes > MaxDailyGoal {
		return shared.ErrInvalidRange
	}
	s.DailyGoalMinutes = minutes
	s.UpdatedAt = now
	return nil
}
