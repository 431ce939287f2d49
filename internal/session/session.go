// Package session models evaluating one student at a time: a draft of level
// selections that is either saved or explicitly discarded.
package session

import (
	"context"
	"errors"

	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/grading"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

var (
	ErrClosed       = errors.New("session: no student open")
	ErrUnsaved      = errors.New("session: unsaved changes")
	ErrUnknownLevel = errors.New("session: level or criterion not in rubric")
)

// Saver persists one student's selections for the session's activity.
type Saver interface {
	SaveEvaluation(ctx context.Context, activityID, studentID string, sel domain.Selections) error
}

type State int

const (
	Closed State = iota
	Open
	// ConfirmingDiscard is Open with a pending close request on a dirty draft.
	ConfirmingDiscard
)

func (st State) String() string {
	switch st {
	case Open:
		return "open"
	case ConfirmingDiscard:
		return "confirming_discard"
	}
	return "closed"
}

type Session struct {
	activityID string
	rubric     rubric.Rubric
	saver      Saver

	state     State
	studentID string
	saved     domain.Selections
	draft     domain.Selections
}

func New(activityID string, r rubric.Rubric, saver Saver) *Session {
	return &Session{activityID: activityID, rubric: r, saver: saver}
}

func (s *Session) State() State       { return s.state }
func (s *Session) StudentID() string  { return s.studentID }
func (s *Session) ActivityID() string { return s.activityID }

// Draft returns a copy of the current selections.
func (s *Session) Draft() domain.Selections { return s.draft.Clone() }

// Dirty reports whether the draft differs from what was last saved.
func (s *Session) Dirty() bool {
	return s.state != Closed && !s.draft.Equal(s.saved)
}

// Open starts evaluating a student from their saved selections. A dirty
// session must be saved or discarded first.
func (s *Session) Open(studentID string, saved domain.Selections) error {
	if s.Dirty() {
		return ErrUnsaved
	}
	s.state = Open
	s.studentID = studentID
	s.saved = saved.Clone()
	s.draft = saved.Clone()
	return nil
}

// Toggle selects level for a criterion; choosing the selected level again
// clears it.
func (s *Session) Toggle(criterionID string, level int) error {
	if s.state == Closed {
		return ErrClosed
	}
	c, ok := s.rubric.Criterion(criterionID)
	if !ok || level < 0 || level >= len(c.Levels) {
		return ErrUnknownLevel
	}
	if cur, has := s.draft[criterionID]; has && cur == level {
		delete(s.draft, criterionID)
	} else {
		s.draft[criterionID] = level
	}
	s.state = Open
	return nil
}

// SetRubric replaces the rubric used for previews and level checks, e.g.
// after it was edited while the session stayed open.
func (s *Session) SetRubric(r rubric.Rubric) { s.rubric = r }

// Score is the live preview of the draft.
func (s *Session) Score() (float64, bool) { return grading.Score(s.rubric, s.draft) }

// RequestClose closes a clean session. A dirty one moves to
// ConfirmingDiscard and stays open until ConfirmDiscard or Stay.
func (s *Session) RequestClose() (closed bool) {
	if s.state == Closed {
		return true
	}
	if s.Dirty() {
		s.state = ConfirmingDiscard
		return false
	}
	s.close()
	return true
}

func (s *Session) ConfirmDiscard() {
	s.close()
}

// Stay cancels a pending close request.
func (s *Session) Stay() {
	if s.state == ConfirmingDiscard {
		s.state = Open
	}
}

func (s *Session) close() {
	s.state = Closed
	s.studentID = ""
	s.saved, s.draft = nil, nil
}

// Save persists the draft. On failure the session stays open and dirty.
func (s *Session) Save(ctx context.Context) error {
	if s.state == Closed {
		return ErrClosed
	}
	sel := s.draft.Clone()
	if err := s.saver.SaveEvaluation(ctx, s.activityID, s.studentID, sel); err != nil {
		return err
	}
	s.saved = sel
	s.state = Open
	return nil
}

// SaveAndNext saves, then opens the student after the current one in roster
// order with their saved selections. next is false at the end of the roster,
// in which case the session is closed.
func (s *Session) SaveAndNext(ctx context.Context, roster []domain.Student, rec domain.EvaluationRecord) (next string, ok bool, err error) {
	if err := s.Save(ctx); err != nil {
		return "", false, err
	}
	cur := s.studentID
	for i, st := range roster {
		if st.ID != cur {
			continue
		}
		if i+1 < len(roster) {
			n := roster[i+1].ID
			saved := rec.For(n)
			if saved == nil {
				saved = domain.Selections{}
			}
			// just saved, so Open cannot fail on a dirty draft
			_ = s.Open(n, saved)
			return n, true, nil
		}
	}
	s.close()
	return "", false, nil
}
