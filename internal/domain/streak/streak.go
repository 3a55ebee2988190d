// Package streak отслеживает непрерывность ежедневной активности:
// серии дней, заморозки (freeze) и окно восстановления после пропуска.
// Чистый доменный слой без внешних зависимостей.
package streak

import (
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

// DefaultRecoveryWindow - длительность окна восстановления серии.
const DefaultRecoveryWindow = 48 * time.Hour

// MilestoneDays - длины серий, за которые фиксируется достижение (каждое один раз).
var MilestoneDays = []int{3, 7, 14, 30, 60, 100, 365}

// IsMilestone проверяет, является ли длина серии вехой.
func IsMilestone(days int) bool {
	for _, d := range MilestoneDays {
		if d == days {
			return true
		}
	}
	return false
}

// Policy задаёт параметры вычисления серии.
type Policy struct {
	// Location - опорный часовой пояс; сравнение дней всегда в нём,
	// а не в локальном времени клиента.
	Location *time.Location

	// RecoveryWindow - сколько длится окно восстановления.
	RecoveryWindow time.Duration
}

// DefaultPolicy возвращает политику по умолчанию (Asia/Almaty, 48 часов).
func DefaultPolicy() Policy {
	return Policy{
		Location:       timeutil.AlmatyTZ,
		RecoveryWindow: DefaultRecoveryWindow,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return timeutil.AlmatyTZ
	}
	return p.Location
}

func (p Policy) window() time.Duration {
	if p.RecoveryWindow <= 0 {
		return DefaultRecoveryWindow
	}
	return p.RecoveryWindow
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE
// ══════════════════════════════════════════════════════════════════════════════

// Milestone - достигнутая веха серии.
type Milestone struct {
	// Days - длина серии.
	Days int `json:"days"`

	// AchievedAt - когда веха была достигнута.
	AchievedAt time.Time `json:"achieved_at"`
}

// State - состояние серии пользователя.
type State struct {
	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// CurrentStreak - текущая серия дней.
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - лучшая серия за всё время.
	LongestStreak int `json:"longest_streak"`

	// LastActivityDate - начало дня последней засчитанной активности (nil после сброса).
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`

	// FreezesAvailable - количество доступных заморозок.
	FreezesAvailable int `json:"freezes_available"`

	// FreezeUsedDates - дни, в которые использовались заморозки.
	FreezeUsedDates []time.Time `json:"freeze_used_dates"`

	// RecoveryWindowEnd - конец окна восстановления (nil если окна нет).
	RecoveryWindowEnd *time.Time `json:"recovery_window_end,omitempty"`

	// TotalActivitiesCompleted - счётчик засчитанных активностей за всё время.
	TotalActivitiesCompleted int `json:"total_activities_completed"`

	// Milestones - достигнутые вехи, не более одной на длину.
	Milestones []Milestone `json:"milestones"`

	// UpdatedAt - время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState создаёт пустое состояние серии.
func NewState(userID string, now time.Time) *State {
	return &State{
		UserID:          userID,
		FreezeUsedDates: []time.Time{},
		Milestones:      []Milestone{},
		UpdatedAt:       now,
	}
}

// RegisterResult - результат регистрации активности.
type RegisterResult struct {
	// Streak - текущая серия после регистрации.
	Streak int `json:"streak"`

	// MilestoneHit - достигнута ли новая веха.
	MilestoneHit bool `json:"milestone_hit"`

	// MilestoneDay - длина достигнутой вехи (0 если нет).
	MilestoneDay int `json:"milestone_day,omitempty"`

	// RecoveryAvailable - открыто ли окно восстановления.
	RecoveryAvailable bool `json:"recovery_available"`

	// Broken - была ли серия сброшена этой регистрацией.
	Broken bool `json:"broken"`

	// PreviousStreak - длина серии до сброса.
	PreviousStreak int `json:"previous_streak,omitempty"`
}

// HasMilestone проверяет, записана ли уже веха.
func (s *State) HasMilestone(days int) bool {
	for _, m := range s.Milestones {
		if m.Days == days {
			return true
		}
	}
	return false
}

// RecoveryOpen проверяет, открыто ли окно восстановления в момент now.
func (s *State) RecoveryOpen(now time.Time) bool {
	return s.RecoveryWindowEnd != nil && !now.After(*s.RecoveryWindowEnd)
}

// RegisterActivity засчитывает активность в момент now.
//
// Дни сравниваются в опорном часовом поясе политики:
//   - последняя активность вчера или её нет: серия растёт
//   - сегодня уже была активность: растёт только счётчик за всё время
//   - пропуск двух и более дней: при наличии заморозки и открытом окне серия
//     не меняется; иначе серия сбрасывается, открывается окно восстановления,
//     а сегодняшний день становится первым днём новой серии.
func (s *State) RegisterActivity(now time.Time, p Policy) RegisterResult {
	loc := p.location()
	s.TotalActivitiesCompleted++
	s.UpdatedAt = now

	if s.LastActivityDate != nil {
		gap := timeutil.DaysBetween(*s.LastActivityDate, now, loc)
		switch {
		case gap <= 0:
			return RegisterResult{
				Streak:            s.CurrentStreak,
				RecoveryAvailable: s.RecoveryOpen(now),
			}
		case gap >= 2:
			if s.FreezesAvailable > 0 && s.RecoveryOpen(now) {
				return RegisterResult{
					Streak:            s.CurrentStreak,
					RecoveryAvailable: true,
				}
			}
			previous := s.CurrentStreak
			s.breakStreak(now, p)
			result := s.extend(now, loc)
			result.Broken = true
			result.PreviousStreak = previous
			result.RecoveryAvailable = true
			return result
		}
	}

	result := s.extend(now, loc)
	result.RecoveryAvailable = s.RecoveryOpen(now)
	return result
}

// breakStreak сбрасывает серию и открывает окно восстановления.
func (s *State) breakStreak(now time.Time, p Policy) {
	s.CurrentStreak = 0
	s.LastActivityDate = nil
	end := now.Add(p.window())
	s.RecoveryWindowEnd = &end
}

// extend продлевает серию на день now.
func (s *State) extend(now time.Time, loc *time.Location) RegisterResult {
	s.CurrentStreak++
	today := timeutil.StartOfDay(now, loc)
	s.LastActivityDate = &today
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}

	result := RegisterResult{Streak: s.CurrentStreak}
	if IsMilestone(s.CurrentStreak) && !s.HasMilestone(s.CurrentStreak) {
		s.Milestones = append(s.Milestones, Milestone{Days: s.CurrentStreak, AchievedAt: now})
		result.MilestoneHit = true
		result.MilestoneDay = s.CurrentStreak
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// FREEZE & RECOVERY
// ══════════════════════════════════════════════════════════════════════════════

// UseFreeze расходует одну заморозку и запоминает день.
func (s *State) UseFreeze(now time.Time, p Policy) error {
	if s.FreezesAvailable <= 0 {
		return shared.ErrNoFreezesAvailable
	}
	s.FreezesAvailable--
	s.FreezeUsedDates = append(s.FreezeUsedDates, timeutil.StartOfDay(now, p.location()))
	s.UpdatedAt = now
	return nil
}

// PurchaseFreeze добавляет count заморозок.
func (s *State) PurchaseFreeze(count int, now time.Time) error {
	if count < 1 {
		return shared.ErrInvalidFreezeCount
	}
	s.FreezesAvailable += count
	s.UpdatedAt = now
	return nil
}

// StartRecovery открывает окно восстановления для уже сброшенной серии.
func (s *State) StartRecovery(now time.Time, p Policy) error {
	if s.CurrentStreak > 0 {
		return shared.ErrStreakNotBroken
	}
	end := now.Add(p.window())
	s.RecoveryWindowEnd = &end
	s.UpdatedAt = now
	return nil
}

// Recover восстанавливает серию до лучшего значения (LongestStreak),
// а не до значения перед сбросом.
func (s *State) Recover(now time.Time, p Policy) error {
	if s.RecoveryWindowEnd == nil {
		return shared.ErrNoRecoveryWindow
	}
	if now.After(*s.RecoveryWindowEnd) {
		return shared.ErrRecoveryExpired
	}
	s.CurrentStreak = s.LongestStreak
	today := timeutil.StartOfDay(now, p.location())
	s.LastActivityDate = &today
	s.RecoveryWindowEnd = nil
	s.UpdatedAt = now
	return nil
}
