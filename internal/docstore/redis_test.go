package docstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/logger"
)

func TestRedisNotifierForwardsChanges(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n, err := docstore.NewRedisNotifier(ctx, logger.Nop(), mr.Addr(), "changes")
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	defer n.Close()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	sig, stop := n.Watch(func(c docstore.Change) bool { return c.UserID == "u1" })
	defer stop()

	// garbage and another user's change must not signal or stop the forwarder
	mr.Publish("changes", "{not json")
	if err := n.Publish(ctx, docstore.Change{UserID: "u2", Collection: docstore.Classes, ID: "c9", Op: docstore.OpCreate}); err != nil {
		t.Fatalf("publish u2: %v", err)
	}
	if err := n.Publish(ctx, docstore.Change{UserID: "u1", Collection: docstore.Classes, ID: "c1", Op: docstore.OpCreate}); err != nil {
		t.Fatalf("publish u1: %v", err)
	}

	select {
	case <-sig:
	case <-time.After(2 * time.Second):
		t.Fatal("no signal for u1 change")
	}
	select {
	case <-sig:
		t.Fatal("unexpected second signal")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedisNotifierNeedsAddress(t *testing.T) {
	if _, err := docstore.NewRedisNotifier(context.Background(), logger.Nop(), "", ""); err == nil {
		t.Fatal("expected error for empty address")
	}
}
