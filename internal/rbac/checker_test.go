package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mind-engage/mindengage-rubrics/internal/rbac"
)

func TestDefaultPolicy(t *testing.T) {
	c := rbac.NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"teacher", rbac.PermRubricDelete, true},
		{"teacher", rbac.PermAssistUse, true},
		{"assistant", rbac.PermEvaluationSave, true},
		{"assistant", rbac.PermRubricEdit, false},
		{"assistant", rbac.PermAssistUse, false},
		{"admin", "anything:at_all", true},
		{"", rbac.PermRubricView, false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Fatalf("%s/%s: got %v want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestRequire(t *testing.T) {
	h := rbac.Require(rbac.PermClassDelete)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for role, want := range map[string]int{"teacher": 204, "assistant": 403, "": 403} {
		req := httptest.NewRequest(http.MethodDelete, "/classes/1", nil)
		req = req.WithContext(rbac.WithRole(req.Context(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("role %q: got %d want %d", role, rec.Code, want)
		}
	}
}
