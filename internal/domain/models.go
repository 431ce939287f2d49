package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Class struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name" validate:"required"`
	Students []Student `json:"students" validate:"required,min=1,dive"`
}

// NewStudentID returns a fresh roster identifier. Student ids are join keys
// for evaluation data and are never regenerated once assigned.
func NewStudentID() string { return "student-" + uuid.NewString() }

// RosterFromText builds students from newline separated names, skipping blanks.
func RosterFromText(text string) []Student {
	var out []Student
	for _, line := range strings.Split(text, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		out = append(out, Student{ID: NewStudentID(), Name: name})
	}
	return out
}

func (c Class) Student(id string) (Student, bool) {
	for _, s := range c.Students {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}

// AddStudent appends a student with a fresh id and returns it.
func (c *Class) AddStudent(name string) (Student, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Student{}, false
	}
	s := Student{ID: NewStudentID(), Name: name}
	c.Students = append(c.Students, s)
	return s, true
}

func (c *Class) RemoveStudent(id string) bool {
	for i, s := range c.Students {
		if s.ID == id {
			c.Students = append(c.Students[:i:i], c.Students[i+1:]...)
			return true
		}
	}
	return false
}

// CriterionEntry is one row of an evaluation-criteria taxonomy (e.g. "1.1").
type CriterionEntry struct {
	Code string `json:"code" validate:"required"`
	Text string `json:"text" validate:"required"`
}

type EvalCriteriaSet struct {
	ID       string           `json:"id,omitempty"`
	Subject  string           `json:"subject" validate:"required"`
	Course   string           `json:"course" validate:"required"`
	Criteria []CriterionEntry `json:"criteria" validate:"required,min=1,dive"`
}

// DisplayName is how a criteria set is named in dependency reports.
func (s EvalCriteriaSet) DisplayName() string { return s.Subject + " - " + s.Course }

// Activity binds one class and one rubric for an evaluation session.
// ClassID and RubricID never change after creation.
type Activity struct {
	ID               string           `json:"id,omitempty"`
	Title            string           `json:"title"`
	ClassID          string           `json:"classId"`
	RubricID         string           `json:"rubricId"`
	EvalCriteriaID   *string          `json:"evalCriteriaId"`
	SelectedCriteria []CriterionEntry `json:"selectedCriteria"`
	CreatedAt        time.Time        `json:"createdAt"`
	LastModified     time.Time        `json:"lastModified"`
}

// Selections maps criterion id to the chosen level index (0 is best).
type Selections map[string]int

func (s Selections) Clone() Selections {
	out := make(Selections, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s Selections) Equal(o Selections) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// EvaluationRecord is the per-activity sparse map studentID -> selections.
// A missing student means "not yet evaluated".
type EvaluationRecord map[string]Selections

func (r EvaluationRecord) Clone() EvaluationRecord {
	out := make(EvaluationRecord, len(r))
	for k, v := range r {
		out[k] = v.Clone()
	}
	return out
}

// For returns the student's selections, or nil when not yet evaluated.
func (r EvaluationRecord) For(studentID string) Selections {
	if r == nil {
		return nil
	}
	return r[studentID]
}
