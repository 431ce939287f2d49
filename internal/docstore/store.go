// Package docstore is a per-user document store with push subscriptions.
// Documents live at users/{uid}/{collection}/{id} and hold JSON objects.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Collection string

const (
	Classes      Collection = "classes"
	Rubrics      Collection = "rubrics"
	Activities   Collection = "activities"
	EvalCriteria Collection = "evalCriteria"
	Evaluations  Collection = "evaluations"
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	ErrNoUser   = errors.New("docstore: user id required")
)

type Ref struct {
	UserID     string
	Collection Collection
	ID         string
}

func (r Ref) Path() string {
	return fmt.Sprintf("users/%s/%s/%s", r.UserID, r.Collection, r.ID)
}

func (r Ref) validate() error {
	if r.UserID == "" {
		return ErrNoUser
	}
	if r.Collection == "" || r.ID == "" {
		return fmt.Errorf("docstore: incomplete reference %q", r.Path())
	}
	return nil
}

// Query selects one collection of one user. Results are ordered by creation
// time, newest first when Newest is set.
type Query struct {
	UserID     string
	Collection Collection
	Newest     bool
}

func (q Query) Ref(id string) Ref { return Ref{UserID: q.UserID, Collection: q.Collection, ID: id} }

type Doc struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Decode unmarshals the document body into v.
func (d Doc) Decode(v any) error { return json.Unmarshal(d.Data, v) }

// Op names a write in change notifications and the journal.
type Op string

const (
	OpCreate Op = "create"
	OpSet    Op = "set"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is published after every successful write.
type Change struct {
	UserID     string     `json:"userId"`
	Collection Collection `json:"collection"`
	ID         string     `json:"id"`
	Op         Op         `json:"op"`
}

func (c Change) Ref() Ref { return Ref{UserID: c.UserID, Collection: c.Collection, ID: c.ID} }

// Unsubscribe stops a subscription. Callbacks already in flight may still
// complete after it returns.
type Unsubscribe func()

type Store interface {
	Add(ctx context.Context, q Query, data any) (string, error)
	Set(ctx context.Context, ref Ref, data any) error
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, ref Ref, fields map[string]any) error
	// Merge is Update that creates the document when it is missing.
	Merge(ctx context.Context, ref Ref, fields map[string]any) error
	Delete(ctx context.Context, ref Ref) error
	Get(ctx context.Context, ref Ref) (Doc, error)
	List(ctx context.Context, q Query) ([]Doc, error)

	// SubscribeCollection delivers the current snapshot before returning and
	// then a fresh snapshot after every change to the collection.
	SubscribeCollection(ctx context.Context, q Query, fn func([]Doc)) (Unsubscribe, error)
	// SubscribeDocument is the single-document form; exists is false when
	// the document is missing or was deleted.
	SubscribeDocument(ctx context.Context, ref Ref, fn func(doc Doc, exists bool)) (Unsubscribe, error)
}

// Journal records writes, e.g. into an append-only event log.
type Journal interface {
	Record(ctx context.Context, c Change) error
}

// ErrRemoteWriteFailed marks a write the store rejected. Callers leave their
// local caches untouched and wait for the next snapshot.
var ErrRemoteWriteFailed = errors.New("docstore: remote write failed")

// WriteFailed wraps err so that it matches both ErrRemoteWriteFailed and err.
func WriteFailed(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRemoteWriteFailed, err)
}
