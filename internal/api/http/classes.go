package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-rubrics/internal/apierr"
	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/workspace"
)

func ListClassesHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.Caches().Classes())
	}
}

// POST /classes  { "name": "7A", "roster": "Ann\nBob" }
func SaveClassHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in struct {
			Name   string `json:"name"`
			Roster string `json:"roster"`
		}
		if !decode(w, r, &in) {
			return
		}
		c, err := s.SaveClass(r.Context(), in.Name, in.Roster)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// PUT /classes/{id}/students  { "students": [{"id": "...", "name": "..."}] }
func UpdateStudentsHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in struct {
			Students []domain.Student `json:"students"`
		}
		if !decode(w, r, &in) {
			return
		}
		c, err := s.UpdateClassStudents(r.Context(), chi.URLParam(r, "id"), in.Students)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func ListCriteriaSetsHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.Caches().CriteriaSets())
	}
}

func SaveCriteriaSetHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in workspace.CriteriaSetInput
		if !decode(w, r, &in) {
			return
		}
		set, err := s.SaveEvalCriteria(r.Context(), in)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, set)
	}
}

// POST /criteria-sets/import  { "id": "", "subject": "...", "course": "...", "text": "| code | text |..." }
func ImportCriteriaSetHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in struct {
			ID      string `json:"id"`
			Subject string `json:"subject"`
			Course  string `json:"course"`
			Text    string `json:"text"`
		}
		if !decode(w, r, &in) {
			return
		}
		set, err := s.ImportEvalCriteria(r.Context(), in.ID, in.Subject, in.Course, in.Text)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, set)
	}
}
