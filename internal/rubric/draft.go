package rubric

// DraftCriterion is the editable, decoded form of a Criterion.
type DraftCriterion struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Weight      *int     `json:"weight"`
	Levels      []string `json:"levels"`
}

// Draft is a rubric opened in the editor. Names and weights are kept as
// separate fields and only encoded again by Rubric.
type Draft struct {
	ID       string           `json:"id,omitempty"` // empty for a rubric not yet saved
	Name     string           `json:"name"`
	Levels   []string         `json:"levels"`
	Criteria []DraftCriterion `json:"criteria"`
}

func NewDraft(r Rubric) Draft {
	c := r.Clone()
	d := Draft{ID: c.ID, Name: c.Name, Levels: c.Levels}
	for _, cr := range c.Criteria {
		dec := cr.Decoded()
		d.Criteria = append(d.Criteria, DraftCriterion{
			ID:          cr.ID,
			DisplayName: dec.Name,
			Weight:      dec.Weight,
			Levels:      cr.Levels,
		})
	}
	return d
}

// Rubric encodes the draft back into stored form. Description is left nil.
func (d Draft) Rubric() Rubric {
	r := Rubric{ID: d.ID, Name: d.Name, Levels: append([]string(nil), d.Levels...)}
	for _, c := range d.Criteria {
		r.Criteria = append(r.Criteria, Criterion{
			ID:     c.ID,
			Name:   Emphasize(Encode(c.DisplayName, c.Weight)),
			Levels: fitLevels(c.Levels, len(d.Levels)),
		})
	}
	return r
}

// CheckWeights rejects weights outside 0..100; Decode cannot read them back.
func (d Draft) CheckWeights() error {
	for _, c := range d.Criteria {
		if c.Weight != nil && (*c.Weight < 0 || *c.Weight > 100) {
			return &WeightRangeError{CriterionID: c.ID, Weight: *c.Weight}
		}
	}
	return nil
}

// Validate runs the weight check against the draft as it would be saved.
func (d Draft) Validate() (Verdict, error) {
	if err := d.CheckWeights(); err != nil {
		return Verdict{}, err
	}
	return ValidateWeights(d.Rubric().Criteria)
}

// SetWeight sets or clears (nil) a criterion weight by id.
func (d *Draft) SetWeight(criterionID string, w *int) bool {
	for i := range d.Criteria {
		if d.Criteria[i].ID == criterionID {
			d.Criteria[i].Weight = w
			return true
		}
	}
	return false
}
