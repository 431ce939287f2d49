package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-rubrics/internal/apierr"
	"github.com/mind-engage/mindengage-rubrics/internal/workspace"
)

// GET /session
func SessionHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.Session())
	}
}

// POST /session/open  { "activityId": "...", "studentId": "..." }
func BeginEvaluationHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in struct {
			ActivityID string `json:"activityId"`
			StudentID  string `json:"studentId"`
		}
		if !decode(w, r, &in) {
			return
		}
		v, err := s.BeginEvaluation(r.Context(), in.ActivityID, in.StudentID)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// POST /session/toggle  { "criterionId": "...", "level": 0 }
func ToggleLevelHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in struct {
			CriterionID string `json:"criterionId"`
			Level       int    `json:"level"`
		}
		if !decode(w, r, &in) {
			return
		}
		v, err := s.ToggleLevel(in.CriterionID, in.Level)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func SaveDraftHandler(ws Workspaces, next bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		save := s.SaveDraft
		if next {
			save = s.SaveAndNext
		}
		v, err := save(r.Context())
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// SessionActionHandler runs a state change that cannot fail.
func SessionActionHandler(ws Workspaces, act func(*workspace.Service) workspace.SessionView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, act(s))
	}
}
