package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alem-hub/learning-journey/internal/application/command"
	"github.com/alem-hub/learning-journey/internal/application/query"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/feedback"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY COMPLETION ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// StartActivityResponse is the body of POST .../start.
type StartActivityResponse struct {
	Record  *completion.Record `json:"record"`
	Created bool               `json:"created"`
}

// SubmitAnswerRequest is the body of POST .../answers.
type SubmitAnswerRequest struct {
	QuestionID       string `json:"question_id"`
	Value            string `json:"value"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

// CompleteActivityResponse is the body returned by POST .../complete.
type CompleteActivityResponse struct {
	Score           int              `json:"score"`
	IsPerfect       bool             `json:"is_perfect"`
	XPEarned        int              `json:"xp_earned"`
	TimeSpent       time.Duration    `json:"time_spent"`
	CompletedAt     time.Time        `json:"completed_at"`
	CountsForStreak bool             `json:"counts_for_streak"`
	Summary         feedback.Summary `json:"summary"`
}

// ReviewMistakeRequest is the body of POST .../mistakes/{questionID}/review.
type ReviewMistakeRequest struct {
	Recalled bool `json:"recalled"`
}

func (s *Server) handleStartActivity(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.StartActivity.Handle(r.Context(), command.StartActivityCommand{
		UserID:     chi.URLParam(r, "userID"),
		ActivityID: chi.URLParam(r, "activityID"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, StartActivityResponse{Record: res.Record, Created: res.Created})
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := s.deps.SubmitAnswer.Handle(r.Context(), command.SubmitAnswerCommand{
		UserID:     chi.URLParam(r, "userID"),
		ActivityID: chi.URLParam(r, "activityID"),
		QuestionID: req.QuestionID,
		Value:      req.Value,
		TimeSpent:  time.Duration(req.TimeSpentSeconds) * time.Second,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleCompleteActivity(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.CompleteActivity.Handle(r.Context(), command.CompleteActivityCommand{
		UserID:     chi.URLParam(r, "userID"),
		ActivityID: chi.URLParam(r, "activityID"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, CompleteActivityResponse{
		Score:           res.Outcome.Score,
		IsPerfect:       res.Outcome.IsPerfect,
		XPEarned:        res.Outcome.XPEarned,
		TimeSpent:       res.Outcome.TimeSpent,
		CompletedAt:     res.Outcome.CompletedAt,
		CountsForStreak: res.Outcome.CountsForStreak,
		Summary:         res.Summary,
	})
}

func (s *Server) handleActivitySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.GetActivitySummary.Handle(r.Context(), query.GetActivitySummaryQuery{
		UserID:     chi.URLParam(r, "userID"),
		ActivityID: chi.URLParam(r, "activityID"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleReviewMistake(w http.ResponseWriter, r *http.Request) {
	var req ReviewMistakeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	record, err := s.deps.ReviewMistake.Handle(r.Context(), command.ReviewMistakeCommand{
		UserID:     chi.URLParam(r, "userID"),
		ActivityID: chi.URLParam(r, "activityID"),
		QuestionID: chi.URLParam(r, "questionID"),
		Recalled:   req.Recalled,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, record)
}

func (s *Server) handleGetMistakes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	items, err := s.deps.GetMistakes.Handle(r.Context(), query.GetMistakesQuery{
		UserID: chi.URLParam(r, "userID"),
		Limit:  limit,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, items, &ResponseMeta{TotalCount: len(items)})
}

func (s *Server) handleProgressFeedback(w http.ResponseWriter, r *http.Request) {
	window, err := queryInt(r, "window_days")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	report, err := s.deps.GetProgressFeedback.Handle(r.Context(), query.GetProgressFeedbackQuery{
		UserID:     chi.URLParam(r, "userID"),
		SubjectID:  chi.URLParam(r, "subjectID"),
		WindowDays: window,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}
