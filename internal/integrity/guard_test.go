package integrity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/integrity"
)

// fakeStore records deletes; everything else is unused by the guard.
type fakeStore struct {
	docstore.Store
	existing map[docstore.Ref]bool
	deleted  []docstore.Ref
	failOn   docstore.Collection
}

func (f *fakeStore) Delete(_ context.Context, ref docstore.Ref) error {
	if ref.Collection == f.failOn {
		return errors.New("unavailable")
	}
	if !f.existing[ref] {
		return docstore.ErrNotFound
	}
	delete(f.existing, ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

type snapshot []domain.Activity

func (s *snapshot) Activities() []domain.Activity { return *s }

func ptr(s string) *string { return &s }

func activities() snapshot {
	return snapshot{
		{ID: "a1", Title: "Essay 1", ClassID: "c1", RubricID: "r1", EvalCriteriaID: ptr("e1")},
		{ID: "a2", Title: "Essay 2", ClassID: "c1", RubricID: "r2"},
	}
}

func TestFindDependents(t *testing.T) {
	acts := activities()
	if got := integrity.FindDependents(integrity.KindClass, "c1", acts); len(got) != 2 {
		t.Fatalf("class c1: %d", len(got))
	}
	if got := integrity.FindDependents(integrity.KindRubric, "r2", acts); len(got) != 1 || got[0].ID != "a2" {
		t.Fatalf("rubric r2: %+v", got)
	}
	if got := integrity.FindDependents(integrity.KindEvalCriteria, "e1", acts); len(got) != 1 {
		t.Fatalf("criteria e1: %+v", got)
	}
	if got := integrity.FindDependents(integrity.KindEvalCriteria, "", acts); len(got) != 0 {
		t.Fatalf("empty id must not match activities without criteria: %+v", got)
	}
	if got := integrity.FindDependents(integrity.KindActivity, "a1", acts); len(got) != 0 {
		t.Fatalf("activities have no dependents")
	}
}

func TestRequestDelete_Blocked(t *testing.T) {
	acts := activities()
	g := integrity.NewGuard(&fakeStore{}, "u1", &acts, nil)
	d := g.RequestDelete(integrity.KindRubric, "r1", "Essay rubric")
	if d.Allowed || d.Blocked == nil {
		t.Fatalf("expected blocked, got %+v", d)
	}
	if len(d.Blocked.Titles) != 1 || d.Blocked.Titles[0] != "Essay 1" || d.Blocked.Name != "Essay rubric" {
		t.Fatalf("blocked: %+v", d.Blocked)
	}
	if !errors.Is(d.Blocked, integrity.ErrDependencyBlocked) {
		t.Fatalf("errors.Is mismatch")
	}
}

func TestConfirmDelete_RechecksDependents(t *testing.T) {
	acts := snapshot{}
	store := &fakeStore{existing: map[docstore.Ref]bool{{UserID: "u1", Collection: docstore.Classes, ID: "c9"}: true}}
	g := integrity.NewGuard(store, "u1", &acts, nil)
	if d := g.RequestDelete(integrity.KindClass, "c9", "9A"); !d.Allowed {
		t.Fatalf("expected allowed")
	}
	// an activity appears between request and confirmation
	acts = append(acts, domain.Activity{ID: "a9", Title: "Late", ClassID: "c9"})
	err := g.ConfirmDelete(context.Background(), integrity.KindClass, "c9", "9A")
	var blocked *integrity.DependencyBlockedError
	if !errors.As(err, &blocked) || blocked.Titles[0] != "Late" {
		t.Fatalf("expected blocked, got %v", err)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("nothing should be deleted: %+v", store.deleted)
	}
}

func TestConfirmDelete_ActivityCascade(t *testing.T) {
	acts := activities()
	act := docstore.Ref{UserID: "u1", Collection: docstore.Activities, ID: "a1"}
	eval := docstore.Ref{UserID: "u1", Collection: docstore.Evaluations, ID: "a1"}
	store := &fakeStore{existing: map[docstore.Ref]bool{act: true, eval: true}}
	g := integrity.NewGuard(store, "u1", &acts, nil)

	if err := g.ConfirmDelete(context.Background(), integrity.KindActivity, "a1", "Essay 1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(store.deleted) != 2 || store.deleted[0] != act || store.deleted[1] != eval {
		t.Fatalf("deleted: %+v", store.deleted)
	}
}

func TestConfirmDelete_ActivityWithoutEvaluations(t *testing.T) {
	acts := activities()
	act := docstore.Ref{UserID: "u1", Collection: docstore.Activities, ID: "a2"}
	store := &fakeStore{existing: map[docstore.Ref]bool{act: true}}
	g := integrity.NewGuard(store, "u1", &acts, nil)
	if err := g.ConfirmDelete(context.Background(), integrity.KindActivity, "a2", "Essay 2"); err != nil {
		t.Fatalf("missing evaluation doc must be ignored: %v", err)
	}
}

func TestConfirmDelete_CascadeFailureIsNotFatal(t *testing.T) {
	acts := activities()
	act := docstore.Ref{UserID: "u1", Collection: docstore.Activities, ID: "a2"}
	store := &fakeStore{existing: map[docstore.Ref]bool{act: true}, failOn: docstore.Evaluations}
	g := integrity.NewGuard(store, "u1", &acts, nil)
	if err := g.ConfirmDelete(context.Background(), integrity.KindActivity, "a2", "Essay 2"); err != nil {
		t.Fatalf("cascade is best-effort: %v", err)
	}
}

func TestConfirmDelete_RemoteFailure(t *testing.T) {
	acts := snapshot{}
	store := &fakeStore{failOn: docstore.Rubrics}
	g := integrity.NewGuard(store, "u1", &acts, nil)
	err := g.ConfirmDelete(context.Background(), integrity.KindRubric, "r1", "R")
	if !errors.Is(err, docstore.ErrRemoteWriteFailed) {
		t.Fatalf("want ErrRemoteWriteFailed, got %v", err)
	}
}
