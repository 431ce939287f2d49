package http

import (
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-rubrics/internal/apierr"
	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/integrity"
	"github.com/mind-engage/mindengage-rubrics/internal/report"
	"github.com/mind-engage/mindengage-rubrics/internal/workspace"
)

// GET /activities?search=&classId=&rubricId=
func ListActivitiesHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		out := s.FilterActivities(workspace.ActivityFilter{
			Search:   q.Get("search"),
			ClassID:  q.Get("classId"),
			RubricID: q.Get("rubricId"),
		})
		if out == nil {
			out = []domain.Activity{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func CreateActivityHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in workspace.NewActivity
		if !decode(w, r, &in) {
			return
		}
		a, err := s.CreateActivity(r.Context(), in)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// POST /activities/suggest-criteria  { "title": "...", "rubricId": "...", "setId": "..." }
func SuggestCriteriaHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var in struct {
			Title    string `json:"title"`
			RubricID string `json:"rubricId"`
			SetID    string `json:"setId"`
		}
		if !decode(w, r, &in) {
			return
		}
		out, err := s.SuggestCriteria(r.Context(), in.Title, in.RubricID, in.SetID)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if out == nil {
			out = []domain.CriterionEntry{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func ScoresHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		out, err := s.Scores(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PUT /activities/{id}/evaluations/{studentID}  body: {"<criterionID>": level}
func SaveEvaluationHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		var sel domain.Selections
		if !decode(w, r, &sel) {
			return
		}
		if err := s.SaveEvaluation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "studentID"), sel); err != nil {
			apierr.Write(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func FeedbackHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		text, err := s.FeedbackFor(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "studentID"))
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"feedback": text})
	}
}

func ReportHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		m, err := s.Report(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			apierr.Write(w, err)
			return
		}
		scored, failing, pending := m.Summary()
		writeJSON(w, http.StatusOK, map[string]any{
			"report":  m,
			"summary": map[string]int{"scored": scored, "failing": failing, "pending": pending},
		})
	}
}

func ReportCSVHandler(ws Workspaces) http.HandlerFunc {
	exp := report.CSVExporter{}
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		m, err := s.Report(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			apierr.Write(w, err)
			return
		}
		w.Header().Set("Content-Type", exp.ContentType())
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.Filename(m, "csv")}))
		if err := exp.Export(r.Context(), w, m); err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
		}
	}
}

// POST /activities/{id}/report/archive stores the CSV report in the blob store.
func ArchiveReportHandler(ws Workspaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		key, err := s.ArchiveReport(r.Context(), chi.URLParam(r, "id"), report.CSVExporter{}, "csv")
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key})
	}
}

// DeleteHandler answers 409 when activities still use the entity. Without
// ?confirm=1 it only reports that the delete is possible (202); with it the
// entity is deleted (204).
func DeleteHandler(ws Workspaces, kind integrity.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")
		if r.URL.Query().Get("confirm") != "1" {
			d, err := s.RequestDelete(kind, id)
			if err != nil {
				apierr.Write(w, err)
				return
			}
			if d.Blocked != nil {
				apierr.Write(w, d.Blocked)
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]bool{"confirm_required": true})
			return
		}
		if err := s.ConfirmDelete(r.Context(), kind, id); err != nil {
			apierr.Write(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
