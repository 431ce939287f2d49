package http

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-rubrics/internal/auth/middleware"
	"github.com/mind-engage/mindengage-rubrics/internal/storage"
)

// MountAssets serves archived imports and reports. Keys are relative to the
// caller's own prefix, e.g. GET /assets/reports/<activityID>.csv.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		key := storage.UserPrefix(auth.SubjectFromContext(r.Context())) + rel
		rc, err := bs.Get(r.Context(), key)
		switch {
		case errors.Is(err, storage.ErrBadKey):
			http.Error(w, "bad key", http.StatusBadRequest)
			return
		case errors.Is(err, os.ErrNotExist):
			http.Error(w, "not found", http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		ct := "application/octet-stream"
		switch path.Ext(rel) {
		case ".csv":
			ct = "text/csv; charset=utf-8"
		case ".md":
			ct = "text/markdown; charset=utf-8"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
