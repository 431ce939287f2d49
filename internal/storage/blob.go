package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var ErrBadKey = errors.New("storage: invalid key")

// BlobStore keeps raw rubric imports and exported reports.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ImportKey is where the markdown a rubric was imported from is kept.
func ImportKey(userID, rubricID string) string {
	return path.Join("users", safe(userID), "imports", safe(rubricID)+".md")
}

// ReportKey is where an exported activity report is kept.
func ReportKey(userID, activityID, ext string) string {
	return path.Join("users", safe(userID), "reports", safe(activityID)+"."+safe(ext))
}

// UserPrefix is the key prefix every blob of userID lives under.
func UserPrefix(userID string) string { return "users/" + safe(userID) + "/" }

func safe(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
}

// cleanKey rejects absolute keys and keys escaping the store root.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return path.Clean(key), nil
}
