package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
	"github.com/mind-engage/mindengage-rubrics/internal/session"
)

type fakeSaver struct {
	saved map[string]domain.Selections
	err   error
}

func (f *fakeSaver) SaveEvaluation(_ context.Context, activityID, studentID string, sel domain.Selections) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string]domain.Selections{}
	}
	f.saved[activityID+"/"+studentID] = sel
	return nil
}

func testRubric() rubric.Rubric {
	return rubric.Rubric{
		Levels: []string{"A", "B", "C", "D"},
		Criteria: []rubric.Criterion{
			{ID: "k1", Name: "K1", Levels: []string{"", "", "", ""}},
			{ID: "k2", Name: "K2", Levels: []string{"", "", "", ""}},
		},
	}
}

func TestToggleAndScore(t *testing.T) {
	s := session.New("a1", testRubric(), &fakeSaver{})
	if err := s.Toggle("k1", 0); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("toggle on closed session: %v", err)
	}
	_ = s.Open("s1", nil)
	if s.Dirty() {
		t.Fatalf("fresh session is not dirty")
	}
	_ = s.Toggle("k1", 0)
	_ = s.Toggle("k2", 1)
	if got, ok := s.Score(); !ok || got != 8.75 {
		t.Fatalf("score: %v %v", got, ok)
	}
	_ = s.Toggle("k2", 1)
	if _, has := s.Draft()["k2"]; has {
		t.Fatalf("same level twice must clear the selection")
	}
	if err := s.Toggle("k1", 4); !errors.Is(err, session.ErrUnknownLevel) {
		t.Fatalf("out of range level: %v", err)
	}
	if err := s.Toggle("nope", 0); !errors.Is(err, session.ErrUnknownLevel) {
		t.Fatalf("unknown criterion: %v", err)
	}
}

func TestDiscardGuard(t *testing.T) {
	s := session.New("a1", testRubric(), &fakeSaver{})
	_ = s.Open("s1", domain.Selections{"k1": 2})
	_ = s.Toggle("k1", 0)

	if s.RequestClose() {
		t.Fatalf("dirty session must not close silently")
	}
	if s.State() != session.ConfirmingDiscard {
		t.Fatalf("state: %v", s.State())
	}
	s.Stay()
	if s.State() != session.Open || s.Draft()["k1"] != 0 {
		t.Fatalf("stay must keep the draft")
	}
	if err := s.Open("s2", nil); !errors.Is(err, session.ErrUnsaved) {
		t.Fatalf("switching students with unsaved changes: %v", err)
	}
	s.RequestClose()
	s.ConfirmDiscard()
	if s.State() != session.Closed || s.StudentID() != "" {
		t.Fatalf("discard must close")
	}
}

func TestRevertingChangesIsClean(t *testing.T) {
	s := session.New("a1", testRubric(), &fakeSaver{})
	_ = s.Open("s1", domain.Selections{"k1": 2})
	_ = s.Toggle("k1", 1)
	_ = s.Toggle("k1", 2)
	if s.Dirty() || !s.RequestClose() {
		t.Fatalf("draft equal to saved must close without confirmation")
	}
}

func TestSaveFailureKeepsDraft(t *testing.T) {
	saver := &fakeSaver{err: errors.New("offline")}
	s := session.New("a1", testRubric(), saver)
	_ = s.Open("s1", nil)
	_ = s.Toggle("k1", 3)
	if err := s.Save(context.Background()); err == nil {
		t.Fatalf("expected save error")
	}
	if !s.Dirty() {
		t.Fatalf("failed save must leave the session dirty")
	}
}

func TestSaveAndNext(t *testing.T) {
	saver := &fakeSaver{}
	s := session.New("a1", testRubric(), saver)
	roster := []domain.Student{{ID: "s1"}, {ID: "s2"}}
	rec := domain.EvaluationRecord{"s2": {"k2": 3}}

	_ = s.Open("s1", nil)
	_ = s.Toggle("k1", 0)
	next, ok, err := s.SaveAndNext(context.Background(), roster, rec)
	if err != nil || !ok || next != "s2" {
		t.Fatalf("next: %q %v %v", next, ok, err)
	}
	if saver.saved["a1/s1"]["k1"] != 0 {
		t.Fatalf("s1 not saved: %+v", saver.saved)
	}
	if s.StudentID() != "s2" || s.Draft()["k2"] != 3 || s.Dirty() {
		t.Fatalf("s2 must open with its saved selections")
	}

	_, ok, err = s.SaveAndNext(context.Background(), roster, rec)
	if err != nil || ok || s.State() != session.Closed {
		t.Fatalf("end of roster: ok=%v err=%v state=%v", ok, err, s.State())
	}
}

func TestSetRubricChangesPreview(t *testing.T) {
	s := session.New("a1", testRubric(), &fakeSaver{})
	if err := s.Open("s1", domain.Selections{}); err != nil {
		t.Fatal(err)
	}
	_ = s.Toggle("k1", 1)
	if got, _ := s.Score(); got != 7.5 {
		t.Fatalf("4 levels: %v", got)
	}
	two := testRubric()
	two.Levels = []string{"A", "B"}
	for i := range two.Criteria {
		two.Criteria[i].Levels = []string{"", ""}
	}
	s.SetRubric(two)
	if got, _ := s.Score(); got != 5 {
		t.Fatalf("2 levels: %v", got)
	}
	if err := s.Toggle("k2", 3); !errors.Is(err, session.ErrUnknownLevel) {
		t.Fatalf("level outside new rubric: %v", err)
	}
}
