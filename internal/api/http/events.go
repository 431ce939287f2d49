package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-rubrics/internal/apierr"
	auth "github.com/mind-engage/mindengage-rubrics/internal/auth/middleware"
	"github.com/mind-engage/mindengage-rubrics/internal/logger"
	"github.com/mind-engage/mindengage-rubrics/internal/rbac"
	syncx "github.com/mind-engage/mindengage-rubrics/internal/sync"
	"github.com/mind-engage/mindengage-rubrics/internal/workspace"
)

const heartbeatEvery = 15 * time.Second

var allTopics = []syncx.Topic{
	syncx.TopicClasses,
	syncx.TopicRubrics,
	syncx.TopicActivities,
	syncx.TopicCriteria,
	syncx.TopicEvaluations,
}

// Event is one server-sent cache snapshot.
type Event struct {
	Topic syncx.Topic `json:"topic"`
	Data  any         `json:"data"`
}

// pending collects changed topics between writes, so a burst of changes to
// one cache produces one snapshot.
type pending struct {
	mu     sync.Mutex
	topics map[syncx.Topic]bool
	signal chan struct{}
}

func (p *pending) add(t syncx.Topic) {
	p.mu.Lock()
	p.topics[t] = true
	p.mu.Unlock()
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *pending) take() []syncx.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]syncx.Topic, 0, len(p.topics))
	for _, t := range allTopics {
		if p.topics[t] {
			out = append(out, t)
		}
	}
	p.topics = make(map[syncx.Topic]bool)
	return out
}

// GET /events streams a snapshot of every cache on connect and then one per
// changed cache.
func EventsHandler(ws Workspaces, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := current(ws, w, r)
		if !ok {
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		p := &pending{topics: make(map[syncx.Topic]bool), signal: make(chan struct{}, 1)}
		cancel := s.Caches().OnChange(p.add)
		defer cancel()
		for _, t := range allTopics {
			p.add(t)
		}

		heartbeat := time.NewTicker(heartbeatEvery)
		defer heartbeat.Stop()
		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				log.Debug("sse client gone", "user_id", s.UserID())
				return
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					log.Debug("sse write failed", "user_id", s.UserID(), "error", err)
					return
				}
				flusher.Flush()
			case <-p.signal:
				for _, t := range p.take() {
					b, err := json.Marshal(Event{Topic: t, Data: snapshot(s, t)})
					if err != nil {
						log.Warn("sse marshal failed", "topic", string(t), "error", err)
						continue
					}
					if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", b); err != nil {
						log.Debug("sse write failed", "user_id", s.UserID(), "error", err)
						return
					}
				}
				flusher.Flush()
			}
		}
	}
}

func snapshot(s *workspace.Service, t syncx.Topic) any {
	c := s.Caches()
	switch t {
	case syncx.TopicClasses:
		return c.Classes()
	case syncx.TopicRubrics:
		return c.Rubrics()
	case syncx.TopicActivities:
		return c.Activities()
	case syncx.TopicCriteria:
		return c.CriteriaSets()
	case syncx.TopicEvaluations:
		id, rec := c.Evaluations()
		return map[string]any{"activityId": id, "record": rec}
	}
	return nil
}

// ChangeLog is the append-only document change log.
type ChangeLog interface {
	SinceUnder(ctx context.Context, prefix string, seq int64, limit int) ([]syncx.Event, error)
}

// MountChanges registers GET /changes?since=<seq>&limit=<n>, which lists the
// caller's document changes after seq. A client that reconnects uses it to
// tell whether its snapshots are stale.
func MountChanges(r chi.Router, changes ChangeLog) {
	r.With(rbac.Require(rbac.PermActivityView)).Get("/changes", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		since, err := intParam(q.Get("since"))
		if err != nil || since < 0 {
			apierr.Write(w, badParam("since", err))
			return
		}
		limit, err := intParam(q.Get("limit"))
		if err != nil || limit < 0 {
			apierr.Write(w, badParam("limit", err))
			return
		}
		prefix := "users/" + auth.SubjectFromContext(r.Context()) + "/"
		events, err := changes.SinceUnder(r.Context(), prefix, since, int(limit))
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if events == nil {
			events = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, events)
	})
}

// intParam parses an optional integer query parameter; empty means 0.
func intParam(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func badParam(name string, err error) *apierr.Error {
	if err == nil {
		err = errors.New("must not be negative")
	}
	return &apierr.Error{
		Status:  http.StatusBadRequest,
		Code:    "invalid_input",
		Err:     fmt.Errorf("%s: %w", name, err),
		Details: map[string]any{"fields": map[string]string{name: "int"}},
	}
}
