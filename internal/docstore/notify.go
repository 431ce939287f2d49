package docstore

import (
	"context"
	"sync"
)

// Notifier fans out change notifications to watchers. Signals are coalesced:
// a watcher that is busy re-reading sees at most one pending signal, which
// is enough because every signal triggers a full snapshot read.
type Notifier interface {
	Publish(ctx context.Context, c Change) error
	Watch(match func(Change) bool) (signals <-chan struct{}, cancel func())
}

type watcher struct {
	match func(Change) bool
	ch    chan struct{}
}

// Hub is the in-process Notifier.
type Hub struct {
	mu       sync.RWMutex
	next     int
	watchers map[int]*watcher
}

func NewHub() *Hub { return &Hub{watchers: make(map[int]*watcher)} }

func (h *Hub) Publish(_ context.Context, c Change) error {
	h.Dispatch(c)
	return nil
}

// Dispatch delivers c to matching local watchers.
func (h *Hub) Dispatch(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, w := range h.watchers {
		if w.match != nil && !w.match(c) {
			continue
		}
		select {
		case w.ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) Watch(match func(Change) bool) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	w := &watcher{match: match, ch: make(chan struct{}, 1)}
	h.watchers[id] = w

	var once sync.Once
	return w.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.watchers, id)
			h.mu.Unlock()
		})
	}
}

// Watchers reports the number of live watchers.
func (h *Hub) Watchers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}
