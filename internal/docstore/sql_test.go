package docstore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-rubrics/internal/db"
	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	syncx "github.com/mind-engage/mindengage-rubrics/internal/sync"
)

type fixture struct {
	store   *docstore.SQLStore
	journal *syncx.EventRepo
}

func newStore(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, db.DriverSQLite, db.MemoryDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	clock := time.Unix(1_700_000_000, 0)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	n := 0
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("doc-%d", n)
	}
	journal := syncx.NewEventRepo(sqlDB, "")
	s := docstore.NewSQLStore(sqlDB, string(db.DriverSQLite),
		docstore.WithClock(now), docstore.WithIDFunc(ids), docstore.WithJournal(journal))
	return fixture{store: s, journal: journal}
}

type class struct {
	Name string `json:"name"`
}

func TestAddGetList(t *testing.T) {
	f := newStore(t)
	ctx := context.Background()
	q := docstore.Query{UserID: "u1", Collection: docstore.Classes, Newest: true}

	id1, err := f.store.Add(ctx, q, class{Name: "A"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.store.Add(ctx, q, class{Name: "B"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.store.Add(ctx, docstore.Query{UserID: "u2", Collection: docstore.Classes}, class{Name: "other"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	d, err := f.store.Get(ctx, q.Ref(id1))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var c class
	if err := d.Decode(&c); err != nil || c.Name != "A" {
		t.Fatalf("decode: %v %+v", err, c)
	}

	docs, err := f.store.List(ctx, q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "doc-2" {
		t.Fatalf("want newest first for u1 only, got %+v", docs)
	}
}

func TestSetRejectsNonObject(t *testing.T) {
	f := newStore(t)
	ref := docstore.Ref{UserID: "u1", Collection: docstore.Rubrics, ID: "r1"}
	if err := f.store.Set(context.Background(), ref, []int{1}); err == nil {
		t.Fatalf("expected error for array body")
	}
	if err := f.store.Set(context.Background(), docstore.Ref{Collection: docstore.Rubrics, ID: "x"}, class{}); !errors.Is(err, docstore.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}

func TestUpdateAndMerge(t *testing.T) {
	f := newStore(t)
	ctx := context.Background()
	ref := docstore.Ref{UserID: "u1", Collection: docstore.Evaluations, ID: "act-1"}

	if err := f.store.Update(ctx, ref, map[string]any{"s1": map[string]int{"c1": 0}}); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("update missing: want ErrNotFound, got %v", err)
	}
	if err := f.store.Merge(ctx, ref, map[string]any{"s1": map[string]int{"c1": 0}}); err != nil {
		t.Fatalf("merge create: %v", err)
	}
	if err := f.store.Update(ctx, ref, map[string]any{"s2": map[string]int{"c1": 2}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	d, _ := f.store.Get(ctx, ref)
	var rec map[string]map[string]int
	if err := d.Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["s1"]["c1"] != 0 || rec["s2"]["c1"] != 2 || len(rec) != 2 {
		t.Fatalf("merged record: %+v", rec)
	}
}

func TestDeleteMissing(t *testing.T) {
	f := newStore(t)
	ref := docstore.Ref{UserID: "u1", Collection: docstore.Evaluations, ID: "nope"}
	if err := f.store.Delete(context.Background(), ref); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestWritesAreJournaled(t *testing.T) {
	f := newStore(t)
	ctx := context.Background()
	ref := docstore.Ref{UserID: "u1", Collection: docstore.Rubrics, ID: "r1"}
	_ = f.store.Set(ctx, ref, class{Name: "x"})
	_ = f.store.Delete(ctx, ref)

	events, err := f.journal.Since(ctx, 0, 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(events) != 2 || events[0].Type != "rubrics.set" || events[1].Type != "rubrics.delete" {
		t.Fatalf("events: %+v", events)
	}
	if events[0].Key != "users/u1/rubrics/r1" {
		t.Fatalf("key: %q", events[0].Key)
	}
	latest, _ := f.journal.Latest(ctx)
	if rest, _ := f.journal.Since(ctx, latest, 10); len(rest) != 0 {
		t.Fatalf("expected nothing after latest, got %d", len(rest))
	}

	_ = f.store.Set(ctx, docstore.Ref{UserID: "u2", Collection: docstore.Classes, ID: "c1"}, class{Name: "7A"})
	mine, err := f.journal.SinceUnder(ctx, "users/u2/", 0, 10)
	if err != nil {
		t.Fatalf("since under: %v", err)
	}
	if len(mine) != 1 || mine[0].Type != "classes.set" {
		t.Fatalf("u2 events: %+v", mine)
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func TestSubscribeCollection(t *testing.T) {
	f := newStore(t)
	ctx := context.Background()
	q := docstore.Query{UserID: "u1", Collection: docstore.Classes}
	snaps := make(chan []docstore.Doc, 8)

	unsub, err := f.store.SubscribeCollection(ctx, q, func(d []docstore.Doc) { snaps <- d })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()
	if first := recv(t, snaps); len(first) != 0 {
		t.Fatalf("initial snapshot: %+v", first)
	}

	_, _ = f.store.Add(ctx, q, class{Name: "A"})
	if got := recv(t, snaps); len(got) != 1 {
		t.Fatalf("after add: %+v", got)
	}

	// other users' writes do not wake the subscription
	_, _ = f.store.Add(ctx, docstore.Query{UserID: "u2", Collection: docstore.Classes}, class{Name: "B"})
	select {
	case got := <-snaps:
		t.Fatalf("unexpected snapshot %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeDocument(t *testing.T) {
	f := newStore(t)
	ctx := context.Background()
	ref := docstore.Ref{UserID: "u1", Collection: docstore.Evaluations, ID: "a1"}
	type snap struct {
		doc    docstore.Doc
		exists bool
	}
	snaps := make(chan snap, 8)
	unsub, err := f.store.SubscribeDocument(ctx, ref, func(d docstore.Doc, ok bool) { snaps <- snap{d, ok} })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if s := recv(t, snaps); s.exists {
		t.Fatalf("document should not exist yet")
	}
	_ = f.store.Merge(ctx, ref, map[string]any{"s1": map[string]int{"c": 1}})
	if s := recv(t, snaps); !s.exists {
		t.Fatalf("document should exist after merge")
	}

	unsub()
	_ = f.store.Delete(ctx, ref)
	select {
	case s := <-snaps:
		t.Fatalf("snapshot after unsubscribe: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCoalescesSignals(t *testing.T) {
	h := docstore.NewHub()
	ch, cancel := h.Watch(func(c docstore.Change) bool { return c.Collection == docstore.Rubrics })
	for i := 0; i < 5; i++ {
		h.Dispatch(docstore.Change{UserID: "u", Collection: docstore.Rubrics, ID: "r"})
	}
	h.Dispatch(docstore.Change{UserID: "u", Collection: docstore.Classes, ID: "c"})
	if len(ch) != 1 {
		t.Fatalf("want one pending signal, got %d", len(ch))
	}
	cancel()
	cancel()
	if h.Watchers() != 0 {
		t.Fatalf("watcher not removed")
	}
}
