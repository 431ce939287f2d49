package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-rubrics/internal/apierr"
	auth "github.com/mind-engage/mindengage-rubrics/internal/auth/middleware"
	"github.com/mind-engage/mindengage-rubrics/internal/integrity"
	"github.com/mind-engage/mindengage-rubrics/internal/logger"
	"github.com/mind-engage/mindengage-rubrics/internal/rbac"
	"github.com/mind-engage/mindengage-rubrics/internal/storage"
	"github.com/mind-engage/mindengage-rubrics/internal/workspace"
)

// Workspaces hands out the workspace of the authenticated user.
type Workspaces interface {
	Get(ctx context.Context, userID string) (*workspace.Service, error)
}

// Mount registers the workspace API on r. r must already run the JWT
// middleware, which puts the subject and role in the request context.
func Mount(r chi.Router, ws Workspaces, bs storage.BlobStore) {

	r.Route("/rubrics", func(rr chi.Router) {
		rr.With(rbac.Require(rbac.PermRubricView)).Get("/", ListRubricsHandler(ws))
		rr.With(rbac.Require(rbac.PermRubricEdit)).Post("/import", ImportRubricHandler(ws))
		rr.With(rbac.Require(rbac.PermRubricEdit)).Post("/save-as", SaveRubricAsHandler(ws))
		rr.With(rbac.Require(rbac.PermAssistUse)).Post("/generate", GenerateRubricHandler(ws))
		rr.With(rbac.Require(rbac.PermRubricView)).Get("/{id}", GetRubricHandler(ws))
		rr.With(rbac.Require(rbac.PermRubricEdit)).Put("/{id}", UpdateRubricHandler(ws))
		rr.With(rbac.Require(rbac.PermRubricDelete)).Delete("/{id}", DeleteHandler(ws, integrity.KindRubric))
	})

	r.Route("/classes", func(cr chi.Router) {
		cr.With(rbac.Require(rbac.PermClassView)).Get("/", ListClassesHandler(ws))
		cr.With(rbac.Require(rbac.PermClassEdit)).Post("/", SaveClassHandler(ws))
		cr.With(rbac.Require(rbac.PermClassEdit)).Put("/{id}/students", UpdateStudentsHandler(ws))
		cr.With(rbac.Require(rbac.PermClassDelete)).Delete("/{id}", DeleteHandler(ws, integrity.KindClass))
	})

	r.Route("/criteria-sets", func(sr chi.Router) {
		sr.With(rbac.Require(rbac.PermCriteriaView)).Get("/", ListCriteriaSetsHandler(ws))
		sr.With(rbac.Require(rbac.PermCriteriaEdit)).Post("/", SaveCriteriaSetHandler(ws))
		sr.With(rbac.Require(rbac.PermCriteriaEdit)).Post("/import", ImportCriteriaSetHandler(ws))
		sr.With(rbac.Require(rbac.PermCriteriaDelete)).Delete("/{id}", DeleteHandler(ws, integrity.KindEvalCriteria))
	})

	r.Route("/activities", func(ar chi.Router) {
		ar.With(rbac.Require(rbac.PermActivityView)).Get("/", ListActivitiesHandler(ws))
		ar.With(rbac.Require(rbac.PermActivityCreate)).Post("/", CreateActivityHandler(ws))
		ar.With(rbac.Require(rbac.PermAssistUse)).Post("/suggest-criteria", SuggestCriteriaHandler(ws))
		ar.With(rbac.Require(rbac.PermActivityDelete)).Delete("/{id}", DeleteHandler(ws, integrity.KindActivity))
		ar.With(rbac.Require(rbac.PermActivityView)).Get("/{id}/scores", ScoresHandler(ws))
		ar.With(rbac.Require(rbac.PermEvaluationSave)).Put("/{id}/evaluations/{studentID}", SaveEvaluationHandler(ws))
		ar.With(rbac.Require(rbac.PermAssistUse)).Post("/{id}/feedback/{studentID}", FeedbackHandler(ws))
		ar.With(rbac.Require(rbac.PermReportExport)).Get("/{id}/report", ReportHandler(ws))
		ar.With(rbac.Require(rbac.PermReportExport)).Get("/{id}/report.csv", ReportCSVHandler(ws))
		ar.With(rbac.Require(rbac.PermReportExport)).Post("/{id}/report/archive", ArchiveReportHandler(ws))
	})

	r.Route("/session", func(er chi.Router) {
		er.Use(rbac.Require(rbac.PermEvaluationSave))
		er.Get("/", SessionHandler(ws))
		er.Post("/open", BeginEvaluationHandler(ws))
		er.Post("/toggle", ToggleLevelHandler(ws))
		er.Post("/save", SaveDraftHandler(ws, false))
		er.Post("/save-next", SaveDraftHandler(ws, true))
		er.Post("/close", SessionActionHandler(ws, (*workspace.Service).CloseEvaluation))
		er.Post("/discard", SessionActionHandler(ws, (*workspace.Service).DiscardDraft))
		er.Post("/stay", SessionActionHandler(ws, (*workspace.Service).KeepEditing))
	})

	if bs != nil {
		r.Route("/assets", func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermReportExport))
			MountAssets(ar, bs)
		})
	}
}

// MountEvents registers the GET /events stream.
func MountEvents(r chi.Router, ws Workspaces, log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	r.With(rbac.Require(rbac.PermActivityView)).Get("/events", EventsHandler(ws, log))
}

// current returns the caller's workspace, writing the error response itself
// when there is none.
func current(ws Workspaces, w http.ResponseWriter, r *http.Request) (*workspace.Service, bool) {
	s, err := ws.Get(r.Context(), auth.SubjectFromContext(r.Context()))
	if err != nil {
		apierr.Write(w, err)
		return nil, false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}
