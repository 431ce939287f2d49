package syncx

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/logger"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

// Topic names the cache a change notification replaced.
type Topic string

const (
	TopicClasses     Topic = "classes"
	TopicRubrics     Topic = "rubrics"
	TopicActivities  Topic = "activities"
	TopicCriteria    Topic = "evalCriteria"
	TopicEvaluations Topic = "evaluations"
)

var ErrDetached = errors.New("syncx: no user attached")

// Synchronizer mirrors one user's collections into local caches. Every
// notification replaces a whole cache; readers get copies.
//
// Two generation counters guard against late notifications: gen changes on
// every Attach/Detach, evalGen on every active-activity switch. A callback
// carrying an older generation is dropped.
type Synchronizer struct {
	store docstore.Store
	log   *logger.Logger

	mu          sync.RWMutex
	userID      string
	gen         uint64
	evalGen     uint64
	unsubs      []docstore.Unsubscribe
	evalUnsub   docstore.Unsubscribe
	classes     []domain.Class
	rubrics     []rubric.Rubric
	activities  []domain.Activity
	criteria    []domain.EvalCriteriaSet
	activeID    string
	evaluations domain.EvaluationRecord

	lmu       sync.Mutex
	nextL     int
	listeners map[int]func(Topic)
}

func New(store docstore.Store, log *logger.Logger) *Synchronizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synchronizer{
		store:       store,
		log:         log.With("component", "Synchronizer"),
		evaluations: domain.EvaluationRecord{},
		listeners:   make(map[int]func(Topic)),
	}
}

// Attach replaces any previous identity and opens the four collection
// subscriptions. Either all of them open or none stay open.
func (s *Synchronizer) Attach(ctx context.Context, userID string) error {
	if userID == "" {
		return docstore.ErrNoUser
	}
	s.Detach()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.userID = userID
	s.mu.Unlock()

	subs := []struct {
		coll   docstore.Collection
		newest bool
		apply  func([]docstore.Doc)
	}{
		{docstore.Classes, false, func(d []docstore.Doc) { s.replace(gen, TopicClasses, func() { s.classes = decodeAll[domain.Class](s.log, d, setClassID) }) }},
		{docstore.Rubrics, false, func(d []docstore.Doc) { s.replace(gen, TopicRubrics, func() { s.rubrics = decodeAll[rubric.Rubric](s.log, d, setRubricID) }) }},
		{docstore.Activities, true, func(d []docstore.Doc) { s.replace(gen, TopicActivities, func() { s.activities = decodeAll[domain.Activity](s.log, d, setActivityID) }) }},
		{docstore.EvalCriteria, false, func(d []docstore.Doc) { s.replace(gen, TopicCriteria, func() { s.criteria = decodeAll[domain.EvalCriteriaSet](s.log, d, setCriteriaID) }) }},
	}

	unsubs := make([]docstore.Unsubscribe, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subs {
		g.Go(func() error {
			q := docstore.Query{UserID: userID, Collection: sub.coll, Newest: sub.newest}
			u, err := s.store.SubscribeCollection(gctx, q, sub.apply)
			if err != nil {
				return err
			}
			unsubs[i] = u
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	current := s.gen == gen
	if err == nil && current {
		s.unsubs = unsubs
	}
	if err != nil && current {
		s.gen++
		s.userID = ""
		s.resetLocked()
	}
	s.mu.Unlock()

	if err != nil || !current {
		for _, u := range unsubs {
			if u != nil {
				u()
			}
		}
	}
	if err != nil {
		s.log.Warn("attach failed", "user_id", userID, "error", err)
		return err
	}
	s.log.Debug("attached", "user_id", userID)
	return nil
}

// Detach closes every subscription and empties all caches.
func (s *Synchronizer) Detach() {
	s.mu.Lock()
	if s.userID == "" && s.unsubs == nil && s.evalUnsub == nil {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.evalGen++
	unsubs := s.unsubs
	if s.evalUnsub != nil {
		unsubs = append(unsubs, s.evalUnsub)
	}
	s.unsubs, s.evalUnsub = nil, nil
	s.userID = ""
	s.resetLocked()
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	for _, t := range []Topic{TopicClasses, TopicRubrics, TopicActivities, TopicCriteria, TopicEvaluations} {
		s.notify(t)
	}
}

func (s *Synchronizer) resetLocked() {
	s.classes, s.rubrics, s.activities, s.criteria = nil, nil, nil, nil
	s.activeID = ""
	s.evaluations = domain.EvaluationRecord{}
}

// SetActiveActivity switches the evaluation subscription. The evaluation
// cache is emptied before the new subscription opens, so data of the
// previous activity is never visible under the new id. An empty id only
// clears.
func (s *Synchronizer) SetActiveActivity(ctx context.Context, activityID string) error {
	s.mu.Lock()
	s.evalGen++
	gen := s.evalGen
	old := s.evalUnsub
	s.evalUnsub = nil
	s.activeID = activityID
	s.evaluations = domain.EvaluationRecord{}
	userID := s.userID
	s.mu.Unlock()

	if old != nil {
		old()
	}
	s.notify(TopicEvaluations)
	if activityID == "" {
		return nil
	}
	if userID == "" {
		return ErrDetached
	}

	ref := docstore.Ref{UserID: userID, Collection: docstore.Evaluations, ID: activityID}
	unsub, err := s.store.SubscribeDocument(ctx, ref, func(d docstore.Doc, exists bool) {
		rec := domain.EvaluationRecord{}
		if exists {
			if err := d.Decode(&rec); err != nil {
				s.log.Warn("bad evaluation document", "activity_id", activityID, "error", err)
				rec = domain.EvaluationRecord{}
			}
		}
		s.mu.Lock()
		if s.evalGen != gen {
			s.mu.Unlock()
			return
		}
		s.evaluations = rec
		s.mu.Unlock()
		s.notify(TopicEvaluations)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.evalGen == gen {
		s.evalUnsub = unsub
		unsub = nil
	}
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	return nil
}

func (s *Synchronizer) replace(gen uint64, t Topic, apply func()) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	apply()
	s.mu.Unlock()
	s.notify(t)
}

// OnChange registers fn to run after a cache is replaced. fn runs on the
// notifying goroutine and must not block.
func (s *Synchronizer) OnChange(fn func(Topic)) (cancel func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextL
	s.nextL++
	s.listeners[id] = fn
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Synchronizer) notify(t Topic) {
	s.lmu.Lock()
	fns := make([]func(Topic), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
}

func (s *Synchronizer) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Synchronizer) Classes() []domain.Class {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Class, len(s.classes))
	for i, c := range s.classes {
		c.Students = append([]domain.Student(nil), c.Students...)
		out[i] = c
	}
	return out
}

func (s *Synchronizer) Class(id string) (domain.Class, bool) {
	for _, c := range s.Classes() {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Class{}, false
}

func (s *Synchronizer) Rubrics() []rubric.Rubric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rubric.Rubric, len(s.rubrics))
	for i, r := range s.rubrics {
		out[i] = r.Clone()
	}
	return out
}

func (s *Synchronizer) Rubric(id string) (rubric.Rubric, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rubrics {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return rubric.Rubric{}, false
}

// Activities are ordered newest first.
func (s *Synchronizer) Activities() []domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Activity, len(s.activities))
	for i, a := range s.activities {
		a.SelectedCriteria = append([]domain.CriterionEntry(nil), a.SelectedCriteria...)
		out[i] = a
	}
	return out
}

func (s *Synchronizer) Activity(id string) (domain.Activity, bool) {
	for _, a := range s.Activities() {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Activity{}, false
}

func (s *Synchronizer) CriteriaSets() []domain.EvalCriteriaSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EvalCriteriaSet, len(s.criteria))
	for i, c := range s.criteria {
		c.Criteria = append([]domain.CriterionEntry(nil), c.Criteria...)
		out[i] = c
	}
	return out
}

func (s *Synchronizer) CriteriaSet(id string) (domain.EvalCriteriaSet, bool) {
	for _, c := range s.CriteriaSets() {
		if c.ID == id {
			return c, true
		}
	}
	return domain.EvalCriteriaSet{}, false
}

// Evaluations returns the active activity id and a copy of its record.
func (s *Synchronizer) Evaluations() (activityID string, rec domain.EvaluationRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID, s.evaluations.Clone()
}

func decodeAll[T any](log *logger.Logger, docs []docstore.Doc, setID func(*T, string)) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			log.Warn("skipping undecodable document", "id", d.ID, "error", err)
			continue
		}
		setID(&v, d.ID)
		out = append(out, v)
	}
	return out
}

func setClassID(c *domain.Class, id string)              { c.ID = id }
func setRubricID(r *rubric.Rubric, id string)            { r.ID = id }
func setActivityID(a *domain.Activity, id string)        { a.ID = id }
func setCriteriaID(c *domain.EvalCriteriaSet, id string) { c.ID = id }
