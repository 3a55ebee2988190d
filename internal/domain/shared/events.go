package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Completion is the single event that fans out to the
// journey and streak aggregates; the rest are informational.
const (
	// Completion events
	EventActivityStarted   EventType = "completion.activity_started"
	EventActivityCompleted EventType = "completion.activity_completed"

	// Journey events
	EventActivityUnlocked EventType = "journey.activity_unlocked"
	EventLevelUp          EventType = "journey.level_up"

	// Streak events
	EventStreakMilestone EventType = "streak.milestone_reached"
	EventStreakBroken    EventType = "streak.broken"
	EventStreakRecovered EventType = "streak.recovered"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Completion Events
// ═══════════════════════════════════════════════════════════════════════════

// ActivityStartedEvent is emitted when a completion record is first created.
type ActivityStartedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	ActivityID string `json:"activity_id"`
}

// Payload implements Event interface.
func (e ActivityStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"activity_id": e.ActivityID,
	}
}

// NewActivityStartedEvent creates a new ActivityStartedEvent.
func NewActivityStartedEvent(userID, activityID string, at time.Time) ActivityStartedEvent {
	return ActivityStartedEvent{
		BaseEvent:  NewBaseEvent(EventActivityStarted, userID, at),
		UserID:     userID,
		ActivityID: activityID,
	}
}

// ActivityCompletedEvent carries a finalized attempt to the journey and streak
// consumers. The record is already persisted when this event is published.
type ActivityCompletedEvent struct {
	BaseEvent
	UserID          string        `json:"user_id"`
	ActivityID      string        `json:"activity_id"`
	SubjectID       string        `json:"subject_id"`
	CompletedAt     time.Time     `json:"completed_at"`
	Score           int           `json:"score"`
	TimeSpent       time.Duration `json:"time_spent"`
	XPEarned        int           `json:"xp_earned"`
	IsPerfect       bool          `json:"is_perfect"`
	CountsForStreak bool          `json:"counts_for_streak"`
}

// Payload implements Event interface.
func (e ActivityCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":           e.UserID,
		"activity_id":       e.ActivityID,
		"subject_id":        e.SubjectID,
		"completed_at":      e.CompletedAt.Format(time.RFC3339),
		"score":             e.Score,
		"time_spent":        e.TimeSpent.String(),
		"xp_earned":         e.XPEarned,
		"is_perfect":        e.IsPerfect,
		"counts_for_streak": e.CountsForStreak,
	}
}

// NewActivityCompletedEvent creates a new ActivityCompletedEvent.
func NewActivityCompletedEvent(userID, activityID, subjectID string, completedAt time.Time) ActivityCompletedEvent {
	return ActivityCompletedEvent{
		BaseEvent:   NewBaseEvent(EventActivityCompleted, userID, completedAt),
		UserID:      userID,
		ActivityID:  activityID,
		SubjectID:   subjectID,
		CompletedAt: completedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Journey Events
// ═══════════════════════════════════════════════════════════════════════════

// ActivityUnlockedEvent is emitted when the unlock frontier grows.
type ActivityUnlockedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	ActivityID string `json:"activity_id"`
}

// Payload implements Event interface.
func (e ActivityUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"activity_id": e.ActivityID,
	}
}

// NewActivityUnlockedEvent creates a new ActivityUnlockedEvent.
func NewActivityUnlockedEvent(userID, activityID string, at time.Time) ActivityUnlockedEvent {
	return ActivityUnlockedEvent{
		BaseEvent:  NewBaseEvent(EventActivityUnlocked, userID, at),
		UserID:     userID,
		ActivityID: activityID,
	}
}

// LevelUpEvent is emitted when accumulated XP crosses a level boundary.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalXP int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakMilestoneEvent is emitted the first time a streak reaches a milestone.
type StreakMilestoneEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Days   int    `json:"days"`
}

// Payload implements Event interface.
func (e StreakMilestoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"days":    e.Days,
	}
}

// NewStreakMilestoneEvent creates a new StreakMilestoneEvent.
func NewStreakMilestoneEvent(userID string, days int, at time.Time) StreakMilestoneEvent {
	return StreakMilestoneEvent{
		BaseEvent: NewBaseEvent(EventStreakMilestone, userID, at),
		UserID:    userID,
		Days:      days,
	}
}

// StreakBrokenEvent is emitted when a gap resets the current streak.
type StreakBrokenEvent struct {
	BaseEvent
	UserID            string    `json:"user_id"`
	PreviousStreak    int       `json:"previous_streak"`
	RecoveryWindowEnd time.Time `json:"recovery_window_end"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":             e.UserID,
		"previous_streak":     e.PreviousStreak,
		"recovery_window_end": e.RecoveryWindowEnd.Format(time.RFC3339),
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previous int, windowEnd, at time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:         NewBaseEvent(EventStreakBroken, userID, at),
		UserID:            userID,
		PreviousStreak:    previous,
		RecoveryWindowEnd: windowEnd,
	}
}

// StreakRecoveredEvent is emitted when a broken streak is restored.
type StreakRecoveredEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	RestoredValue int    `json:"restored_value"`
}

// Payload implements Event interface.
func (e StreakRecoveredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"restored_value": e.RestoredValue,
	}
}

// NewStreakRecoveredEvent creates a new StreakRecoveredEvent.
func NewStreakRecoveredEvent(userID string, restored int, at time.Time) StreakRecoveredEvent {
	return StreakRecoveredEvent{
		BaseEvent:     NewBaseEvent(EventStreakRecovered, userID, at),
		UserID:        userID,
		RestoredValue: restored,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
