package catalog

import (
	"context"
)

// Catalog is the read-only source of activities.
type Catalog interface {
	// GetActivity returns one activity.
	// Returns shared.ErrActivityNotFound if it does not exist.
	GetActivity(ctx context.Context, activityID string) (Activity, error)

	// ListActivities returns every activity of a plan in catalog order.
	ListActivities(ctx context.Context, planID string) ([]Activity, error)
}

// AnswerKey looks up the canonical answer of a question.
type AnswerKey interface {
	// GetQuestion returns shared.ErrQuestionNotFound when the question does not
	// belong to the activity.
	GetQuestion(ctx context.Context, activityID, questionID string) (Question, error)
}

// PlanProvider supplies the plan a user is currently enrolled in.
type PlanProvider interface {
	// ActivePlan returns shared.ErrNoActivePlan when the user has none.
	ActivePlan(ctx context.Context, userID string) (Plan, error)
}
