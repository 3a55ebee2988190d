package shared

import (
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies a learner. The engine treats it as an opaque string
// supplied by the enrollment system.
type UserID string

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return strings.TrimSpace(string(u)) == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if uid.IsEmpty() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidInput, "user id is required")
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a learner.
type XP int

const (
	// MinXP is the floor for accumulated XP.
	MinXP XP = 0

	// XPPerLevel is the flat amount of XP that separates two levels.
	XPPerLevel = 100
)

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds a non-negative award. Negative awards are ignored so that the
// level derived from XP can never go down.
func (x XP) Add(amount int) XP {
	if amount <= 0 {
		return x
	}
	return x + XP(amount)
}

// Level calculates the level: floor(XP/100) + 1.
func (x XP) Level() Level {
	if x <= MinXP {
		return MinLevel
	}
	return Level(int(x)/XPPerLevel + 1)
}

// ProgressToNextLevel returns percentage progress to next level (0-99).
func (x XP) ProgressToNextLevel() int {
	if x <= MinXP {
		return 0
	}
	return int(x) % XPPerLevel
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a learner's level.
type Level int

// MinLevel is the level of a learner with no XP.
const MinLevel Level = 1

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RequiredXP returns the total XP required to reach this level.
func (l Level) RequiredXP() int {
	if l <= MinLevel {
		return 0
	}
	return (int(l) - 1) * XPPerLevel
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Score is a percentage score in the closed range 0..100.
type Score int

const (
	MinScore Score = 0
	MaxScore Score = 100
)

// NewScore computes round(100*correct/total), or 0 when nothing was answered.
func NewScore(correct, total int) Score {
	if total <= 0 || correct <= 0 {
		return MinScore
	}
	if correct >= total {
		return MaxScore
	}
	// Integer round-half-up of 100*correct/total.
	return Score((200*correct + total) / (2 * total))
}

// Int returns the underlying int value.
func (s Score) Int() int {
	return int(s)
}
