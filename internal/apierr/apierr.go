// Package apierr maps domain errors onto HTTP responses.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/integrity"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
	"github.com/mind-engage/mindengage-rubrics/internal/session"
	"github.com/mind-engage/mindengage-rubrics/internal/textgen"
	"github.com/mind-engage/mindengage-rubrics/internal/workspace"
)

type Error struct {
	Status  int
	Code    string
	Err     error
	Details map[string]any
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// From classifies err. Unknown errors become a 500 with a generic message.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	e := &Error{Status: http.StatusInternalServerError, Code: "internal", Err: err}

	var (
		correction *workspace.CorrectionRequired
		dup        *workspace.DuplicateNameError
		invalid    *workspace.ValidationError
		blocked    *integrity.DependencyBlockedError
		mismatch   *rubric.WeightSumMismatchError
	)
	switch {
	case errors.As(err, &correction):
		e.Status, e.Code = http.StatusUnprocessableEntity, "weight_sum_mismatch"
		e.Details = map[string]any{"draft": correction.Draft}
		if errors.As(err, &mismatch) {
			e.Details["total"] = mismatch.Total
		}
	case errors.As(err, &mismatch):
		e.Status, e.Code = http.StatusUnprocessableEntity, "weight_sum_mismatch"
		e.Details = map[string]any{"total": mismatch.Total}
	case errors.As(err, &dup):
		e.Status, e.Code = http.StatusConflict, "duplicate_name"
		e.Details = map[string]any{"name": dup.Name, "draft": dup.Draft}
	case errors.As(err, &blocked):
		e.Status, e.Code = http.StatusConflict, "dependency_blocked"
		e.Details = map[string]any{"kind": blocked.Kind, "name": blocked.Name, "titles": blocked.Titles}
	case errors.As(err, &invalid):
		e.Status, e.Code = http.StatusBadRequest, "invalid_input"
		e.Details = map[string]any{"fields": invalid.Fields}
	case errors.Is(err, workspace.ErrInvalidInput), errors.Is(err, rubric.ErrWeightOutOfRange):
		e.Status, e.Code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, rubric.ErrMalformedTable):
		e.Status, e.Code = http.StatusUnprocessableEntity, "malformed_table"
	case errors.Is(err, rubric.ErrEmptyRubric):
		e.Status, e.Code = http.StatusUnprocessableEntity, "empty_rubric"
	case errors.Is(err, workspace.ErrUnknownReference):
		e.Status, e.Code = http.StatusUnprocessableEntity, "unknown_reference"
	case errors.Is(err, workspace.ErrNotFound), errors.Is(err, docstore.ErrNotFound):
		e.Status, e.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrUnsaved):
		e.Status, e.Code = http.StatusConflict, "unsaved_changes"
	case errors.Is(err, workspace.ErrNoSession):
		e.Status, e.Code = http.StatusConflict, "no_session"
	case errors.Is(err, textgen.ErrGenerationFailed):
		e.Status, e.Code = http.StatusBadGateway, "generation_failed"
	case errors.Is(err, docstore.ErrRemoteWriteFailed):
		e.Status, e.Code = http.StatusBadGateway, "write_failed"
	case errors.Is(err, docstore.ErrNoUser):
		e.Status, e.Code = http.StatusUnauthorized, "no_user"
	}
	return e
}

// Write sends err as a JSON body.
func Write(w http.ResponseWriter, err error) {
	e := From(err)
	msg := e.Err.Error()
	if e.Status == http.StatusInternalServerError {
		msg = "internal error"
	}
	body := map[string]any{"error": e.Code, "message": msg}
	for k, v := range e.Details {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(body)
}
