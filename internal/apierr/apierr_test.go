package apierr_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mind-engage/mindengage-rubrics/internal/apierr"
	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/integrity"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
	"github.com/mind-engage/mindengage-rubrics/internal/textgen"
	"github.com/mind-engage/mindengage-rubrics/internal/workspace"
)

func TestFromMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&workspace.CorrectionRequired{Err: &rubric.WeightSumMismatchError{Total: 90}}, 422, "weight_sum_mismatch"},
		{&workspace.DuplicateNameError{Name: "Essay"}, 409, "duplicate_name"},
		{&integrity.DependencyBlockedError{Kind: integrity.KindClass, Name: "7A", Titles: []string{"Essay 1"}}, 409, "dependency_blocked"},
		{&workspace.ValidationError{Fields: map[string]string{"Name": "required"}}, 400, "invalid_input"},
		{rubric.ErrMalformedTable, 422, "malformed_table"},
		{fmt.Errorf("%w: class x", workspace.ErrUnknownReference), 422, "unknown_reference"},
		{workspace.ErrNotFound, 404, "not_found"},
		{fmt.Errorf("%w: quota", textgen.ErrGenerationFailed), 502, "generation_failed"},
		{docstore.WriteFailed(errors.New("disk full")), 502, "write_failed"},
		{errors.New("boom"), 500, "internal"},
	}
	for _, tc := range cases {
		e := apierr.From(tc.err)
		if e.Status != tc.status || e.Code != tc.code {
			t.Fatalf("%v: got %d %s, want %d %s", tc.err, e.Status, e.Code, tc.status, tc.code)
		}
	}
}

func TestWriteIncludesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	apierr.Write(rec, &integrity.DependencyBlockedError{Kind: integrity.KindRubric, Name: "Essay", Titles: []string{"A", "B"}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: %d", rec.Code)
	}
	var body struct {
		Error  string   `json:"error"`
		Titles []string `json:"titles"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "dependency_blocked" || len(body.Titles) != 2 {
		t.Fatalf("body: %+v", body)
	}

	rec = httptest.NewRecorder()
	apierr.Write(rec, errors.New("secret detail"))
	if rec.Code != 500 || !json.Valid(rec.Body.Bytes()) {
		t.Fatalf("500: %d %s", rec.Code, rec.Body)
	}
}
