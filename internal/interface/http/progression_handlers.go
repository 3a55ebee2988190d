package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alem-hub/learning-journey/internal/application/command"
	"github.com/alem-hub/learning-journey/internal/application/query"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// PurchaseFreezeRequest is the body of POST .../streak/freezes.
type PurchaseFreezeRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dto, err := s.deps.GetStreak.Handle(r.Context(), query.GetStreakQuery{
		UserID: chi.URLParam(r, "userID"),
		Days:   days,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto)
}

func (s *Server) handleRegisterActivity(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.RegisterActivity.Handle(r.Context(), command.RegisterActivityCommand{
		UserID: chi.URLParam(r, "userID"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleFreeze serves the four freeze and recovery routes, which differ only
// in the action.
func (s *Server) handleFreeze(action command.FreezeAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := command.ManageFreezeCommand{
			UserID: chi.URLParam(r, "userID"),
			Action: action,
		}
		if action == command.FreezeActionPurchase {
			var req PurchaseFreezeRequest
			if err := decodeJSON(r, &req); err != nil {
				writeDomainError(w, r, err)
				return
			}
			cmd.Count = req.Count
		}

		state, err := s.deps.ManageFreeze.Handle(r.Context(), cmd)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, state)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// JOURNEY ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// UnlockNextResponse is the body returned by POST .../journey/unlock.
type UnlockNextResponse struct {
	Unlocked   bool           `json:"unlocked"`
	ActivityID string         `json:"activity_id,omitempty"`
	Journey    *journey.State `json:"journey"`
}

// SetDailyGoalRequest is the body of PUT .../journey/daily-goal.
type SetDailyGoalRequest struct {
	Minutes int `json:"minutes"`
}

// SwitchTypeRequest is the body of PUT .../journey/type.
type SwitchTypeRequest struct {
	Type string `json:"type"`
}

// SwitchTypeResponse is the body returned by PUT .../journey/type.
type SwitchTypeResponse struct {
	Opened  []string       `json:"opened"`
	Journey *journey.State `json:"journey"`
}

// JourneyResponse is the body returned by GET .../journey: the journey state
// plus where the learner stands inside the current level.
type JourneyResponse struct {
	*journey.State
	XPIntoLevel  int `json:"xp_into_level"`
	LevelStartXP int `json:"level_start_xp"`
	NextLevelXP  int `json:"next_level_xp"`
}

func newJourneyResponse(state *journey.State) JourneyResponse {
	level := shared.Level(state.Level)
	return JourneyResponse{
		State:        state,
		XPIntoLevel:  shared.XP(state.TotalXP).ProgressToNextLevel(),
		LevelStartXP: level.RequiredXP(),
		NextLevelXP:  (level + 1).RequiredXP(),
	}
}

func (s *Server) handleGetJourney(w http.ResponseWriter, r *http.Request) {
	state, err := s.deps.GetJourney.Handle(r.Context(), query.GetJourneyQuery{
		UserID: chi.URLParam(r, "userID"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newJourneyResponse(state))
}

func (s *Server) handleJourneyPath(w http.ResponseWriter, r *http.Request) {
	path, err := s.deps.GetJourneyPath.Handle(r.Context(), query.GetJourneyPathQuery{
		UserID: chi.URLParam(r, "userID"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, path, &ResponseMeta{TotalCount: len(path)})
}

func (s *Server) handleUnlockNext(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.UnlockNext.Handle(r.Context(), command.UnlockNextCommand{
		UserID: chi.URLParam(r, "userID"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, UnlockNextResponse{
		Unlocked:   res.Unlocked,
		ActivityID: res.UnlockedID,
		Journey:    res.Journey,
	})
}

func (s *Server) handleSetDailyGoal(w http.ResponseWriter, r *http.Request) {
	var req SetDailyGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	state, err := s.deps.SetDailyGoal.Handle(r.Context(), command.SetDailyGoalCommand{
		UserID:  chi.URLParam(r, "userID"),
		Minutes: req.Minutes,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

func (s *Server) handleSwitchJourneyType(w http.ResponseWriter, r *http.Request) {
	var req SwitchTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := s.deps.SwitchJourneyType.Handle(r.Context(), command.SwitchJourneyTypeCommand{
		UserID: chi.URLParam(r, "userID"),
		Type:   req.Type,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	opened := res.Opened
	if opened == nil {
		opened = []string{}
	}
	writeJSON(w, r, http.StatusOK, SwitchTypeResponse{Opened: opened, Journey: res.Journey})
}
