// Package completion contains the completion ledger: one record per user and
// activity, the status machine that governs it, and the scoring rules that
// finalize an attempt.
// This is a pure domain layer with zero external dependencies.
package completion

import (
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// Status is the lifecycle state of a completion record.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusUnlocked   Status = "unlocked"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusPerfect    Status = "perfect"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal returns true for completed and perfect records.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusPerfect
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// transitions lists the forward moves each status allows.
var transitions = map[Status][]Status{
	StatusLocked:     {StatusUnlocked, StatusInProgress},
	StatusUnlocked:   {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusPerfect},
	StatusCompleted:  nil,
	StatusPerfect:    nil,
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition validates and applies a move.
func (r *Record) transition(to Status) error {
	if !CanTransition(r.Status, to) {
		return shared.WrapError("completion", "Transition", shared.ErrStateTransition,
			string(r.Status)+" -> "+string(to), shared.ErrInvalidTransition)
	}
	r.Status = to
	return nil
}
