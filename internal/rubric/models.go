package rubric

import "fmt"

type Criterion struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`   // encoded display name, see Encode
	Levels []string `json:"levels"` // one description per rubric level
}

func (c Criterion) Decoded() Decoded { return Decode(c.Name) }

// Rubric is an ordered grid of criteria x performance levels.
type Rubric struct {
	ID          string      `json:"id,omitempty"`
	Name        string      `json:"name"`
	Levels      []string    `json:"levels"`
	Criteria    []Criterion `json:"criteria"`
	Description *string     `json:"description"`
}

// HasWeights reports whether any criterion declares a weight.
func (r Rubric) HasWeights() bool {
	for _, c := range r.Criteria {
		if c.Decoded().Weight != nil {
			return true
		}
	}
	return false
}

func (r Rubric) Criterion(id string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

// CheckShape verifies every criterion has one description per level.
func (r Rubric) CheckShape() error {
	if len(r.Levels) == 0 || len(r.Criteria) == 0 {
		return ErrEmptyRubric
	}
	for _, c := range r.Criteria {
		if len(c.Levels) != len(r.Levels) {
			return fmt.Errorf("rubric: criterion %q has %d levels, want %d", c.ID, len(c.Levels), len(r.Levels))
		}
	}
	return nil
}

// Clone returns a deep copy, safe to edit.
func (r Rubric) Clone() Rubric {
	out := r
	out.Levels = append([]string(nil), r.Levels...)
	out.Criteria = make([]Criterion, len(r.Criteria))
	for i, c := range r.Criteria {
		c.Levels = append([]string(nil), c.Levels...)
		out.Criteria[i] = c
	}
	if r.Description != nil {
		d := *r.Description
		out.Description = &d
	}
	return out
}
