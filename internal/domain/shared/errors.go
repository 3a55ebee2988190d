// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds used for classification with errors.Is().
// Every domain failure belongs to exactly one of the three kinds below.
var (
	// ErrNotFound marks a missing activity, record, question, journey or plan.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidState marks a request that is meaningless for the current state
	// of the aggregate (e.g. completing an already completed activity).
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput marks a caller-correctable request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValueOutOfRange is a refinement of ErrInvalidInput for numeric bounds.
	ErrValueOutOfRange = fmt.Errorf("value out of range: %w", ErrInvalidInput)

	// ErrStateTransition is a refinement of ErrInvalidState for status moves
	// rejected by a transition table.
	ErrStateTransition = fmt.Errorf("invalid state transition: %w", ErrInvalidState)

	// ErrExpired is a refinement of ErrInvalidState for closed time windows.
	ErrExpired = fmt.Errorf("expired: %w", ErrInvalidState)
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "completion", "streak", "journey"
	Op      string // Operation that failed, e.g., "Complete", "UseFreeze"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Catalog errors
var (
	ErrActivityNotFound = NewDomainError("catalog", "FindActivity", ErrNotFound, "activity not found")
	ErrQuestionNotFound = NewDomainError("catalog", "FindQuestion", ErrNotFound, "question not found")
	ErrNoActivePlan     = NewDomainError("catalog", "ActivePlan", ErrNotFound, "no active plan for user")
)

// Completion domain errors
var (
	ErrRecordNotFound     = NewDomainError("completion", "Find", ErrNotFound, "completion record not found")
	ErrAlreadyCompleted   = NewDomainError("completion", "Complete", ErrInvalidState, "activity already completed")
	ErrRecordTerminal     = NewDomainError("completion", "SubmitAnswer", ErrInvalidState, "completion record is terminal")
	ErrMistakeNotFound    = NewDomainError("completion", "ReviewMistake", ErrNotFound, "mistake entry not found")
	ErrInvalidTransition  = NewDomainError("completion", "Transition", ErrStateTransition, "status transition not allowed")
	ErrInvalidAnswerInput = NewDomainError("completion", "SubmitAnswer", ErrInvalidInput, "question id is required")
)

// Streak domain errors
var (
	ErrStreakNotFound     = NewDomainError("streak", "Find", ErrNotFound, "streak not found")
	ErrNoFreezesAvailable = NewDomainError("streak", "UseFreeze", ErrInvalidInput, "no freezes available")
	ErrInvalidFreezeCount = NewDomainError("streak", "PurchaseFreeze", ErrValueOutOfRange, "freeze count must be positive")
	ErrStreakNotBroken    = NewDomainError("streak", "StartRecovery", ErrInvalidState, "streak is not broken")
	ErrNoRecoveryWindow   = NewDomainError("streak", "Recover", ErrInvalidState, "no recovery window open")
	ErrRecoveryExpired    = NewDomainError("streak", "Recover", ErrExpired, "recovery window expired")
)

// Journey domain errors
var (
	ErrJourneyNotFound = NewDomainError("journey", "Find", ErrNotFound, "journey not found")
	ErrInvalidRange    = NewDomainError("journey", "SetDailyGoal", ErrValueOutOfRange, "daily goal must be between 10 and 120 minutes")
	ErrInvalidType     = NewDomainError("journey", "SwitchType", ErrInvalidInput, "journey type must be linear or flexible")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidState checks if the error rejects the request for the current state.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsValidation checks if the error is caller-correctable input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
