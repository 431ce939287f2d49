package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-rubrics/internal/apierr"
	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
	"github.com/mind-engage/mindengage-rubrics/internal/workspace"
)

func ListRubricsHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.Caches().Rubrics())
	}
}

// GET /rubrics/{id} returns the stored rubric and its editable draft.
func GetRubricHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		rb, found := s.Caches().Rubric(chi.URLParam(r, "id"))
		if !found {
			apierr.Write(w, workspace.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rubric": rb, "draft": rubric.NewDraft(rb)})
	}
}

// POST /rubrics/import  { "name": "...", "filename": "...", "text": "| ... |" }
func ImportRubricHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in workspace.ImportRubricInput
		if !decode(w, r, &in) {
			return
		}
		rb, err := s.ImportRubric(r.Context(), in)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rb)
	}
}

// POST /rubrics/save-as  { "name": "...", "draft": {...} }
func SaveRubricAsHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in struct {
			Name  string       `json:"name"`
			Draft rubric.Draft `json:"draft"`
		}
		if !decode(w, r, &in) {
			return
		}
		rb, err := s.SaveRubricAs(r.Context(), in.Draft, in.Name)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rb)
	}
}

// PUT /rubrics/{id}  body: draft
func UpdateRubricHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var d rubric.Draft
		if !decode(w, r, &d) {
			return
		}
		d.ID = chi.URLParam(r, "id")
		rb, err := s.UpdateRubric(r.Context(), d)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rb)
	}
}

// POST /rubrics/generate  { "title": "...", "description": "...", "entries": [...] }
// The draft is not saved; it comes back for the editor.
func GenerateRubricHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in struct {
			Title       string                  `json:"title"`
			Description string                  `json:"description"`
			Entries     []domain.CriterionEntry `json:"entries"`
		}
		if !decode(w, r, &in) {
			return
		}
		d, err := s.GenerateRubricDraft(r.Context(), in.Title, in.Description, in.Entries)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
