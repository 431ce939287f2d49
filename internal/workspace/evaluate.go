package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/grading"
	"github.com/mind-engage/mindengage-rubrics/internal/session"
)

// ErrNoSession is returned by session operations when nothing is being
// evaluated.
var ErrNoSession = errors.New("workspace: no evaluation in progress")

// SessionView is the state of the evaluation in progress.
type SessionView struct {
	State      string            `json:"state"`
	ActivityID string            `json:"activityId,omitempty"`
	StudentID  string            `json:"studentId,omitempty"`
	Draft      domain.Selections `json:"draft,omitempty"`
	Dirty      bool              `json:"dirty"`
	Preview    *grading.Result   `json:"preview,omitempty"`
	// EndOfRoster is set by SaveAndNext after the last student.
	EndOfRoster bool `json:"endOfRoster,omitempty"`
}

func (s *Service) view() SessionView {
	if s.eval == nil || s.eval.State() == session.Closed {
		return SessionView{State: session.Closed.String()}
	}
	score, ok := s.eval.Score()
	res := grading.Result{
		StudentID: s.eval.StudentID(),
		Score:     score,
		Scored:    ok,
		Display:   grading.Format(score, ok),
		Failing:   grading.Failing(score, ok),
	}
	return SessionView{
		State:      s.eval.State().String(),
		ActivityID: s.eval.ActivityID(),
		StudentID:  s.eval.StudentID(),
		Draft:      s.eval.Draft(),
		Dirty:      s.eval.Dirty(),
		Preview:    &res,
	}
}

// Session returns the evaluation in progress.
func (s *Service) Session() SessionView {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	return s.view()
}

// BeginEvaluation opens studentID of an activity with their saved selections.
// An unsaved draft for another student must be saved or discarded first.
func (s *Service) BeginEvaluation(ctx context.Context, activityID, studentID string) (SessionView, error) {
	_, c, r, err := s.resolve(activityID)
	if err != nil {
		return SessionView{}, err
	}
	if _, ok := c.Student(studentID); !ok {
		return SessionView{}, fmt.Errorf("%w: student %s", ErrNotFound, studentID)
	}
	rec, err := s.Evaluations(ctx, activityID)
	if err != nil {
		return SessionView{}, err
	}
	saved := rec.For(studentID)
	if saved == nil {
		saved = domain.Selections{}
	}

	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.eval != nil && s.eval.Dirty() {
		return s.view(), session.ErrUnsaved
	}
	// a clean session is rebuilt so preview and toggles use the current rubric
	s.eval = session.New(activityID, r, s)
	if err := s.eval.Open(studentID, saved); err != nil {
		return s.view(), err
	}
	return s.view(), nil
}

// ToggleLevel selects or clears a level in the draft.
func (s *Service) ToggleLevel(criterionID string, level int) (SessionView, error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.eval == nil {
		return s.view(), ErrNoSession
	}
	if err := s.eval.Toggle(criterionID, level); err != nil {
		return s.view(), sessionErr(err)
	}
	return s.view(), nil
}

// SaveDraft persists the draft and keeps the student open.
func (s *Service) SaveDraft(ctx context.Context) (SessionView, error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.eval == nil {
		return s.view(), ErrNoSession
	}
	if err := s.eval.Save(ctx); err != nil {
		return s.view(), sessionErr(err)
	}
	return s.view(), nil
}

// SaveAndNext persists the draft and opens the next student in roster order.
func (s *Service) SaveAndNext(ctx context.Context) (SessionView, error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.eval == nil {
		return s.view(), ErrNoSession
	}
	_, c, r, err := s.resolve(s.eval.ActivityID())
	if err != nil {
		return s.view(), err
	}
	s.eval.SetRubric(r)
	rec, err := s.Evaluations(ctx, s.eval.ActivityID())
	if err != nil {
		return s.view(), err
	}
	_, more, err := s.eval.SaveAndNext(ctx, c.Students, rec)
	if err != nil {
		return s.view(), sessionErr(err)
	}
	v := s.view()
	v.EndOfRoster = !more
	return v, nil
}

// CloseEvaluation closes a clean draft. A dirty one stays open and the view
// reports state confirming_discard until DiscardDraft or KeepEditing.
func (s *Service) CloseEvaluation() SessionView {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.eval != nil {
		s.eval.RequestClose()
	}
	return s.view()
}

func (s *Service) DiscardDraft() SessionView {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.eval != nil {
		s.eval.ConfirmDiscard()
	}
	return s.view()
}

func (s *Service) KeepEditing() SessionView {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.eval != nil {
		s.eval.Stay()
	}
	return s.view()
}

func sessionErr(err error) error {
	switch {
	case errors.Is(err, session.ErrClosed):
		return ErrNoSession
	case errors.Is(err, session.ErrUnknownLevel):
		return invalid("Selections", "level")
	}
	return err
}
