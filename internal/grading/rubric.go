package grading

import (
	"fmt"

	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

const (
	MaxScore      = 10.0
	PassThreshold = 5.0
)

// Score computes a 0-10 score from sparse level selections (0 = best level).
// Each selected criterion scores 10 - i*(10/levels). In an unweighted rubric
// the result is the mean over selected criteria. If any criterion declares a
// weight, only criteria that are both selected and weighted count, averaged by
// weight. ok is false when nothing counts toward the score.
func Score(r rubric.Rubric, sel domain.Selections) (score float64, ok bool) {
	numLevels := len(r.Levels)
	if numLevels == 0 || len(r.Criteria) == 0 || len(sel) == 0 {
		return 0, false
	}
	step := MaxScore / float64(numLevels)

	if r.HasWeights() {
		num, den := 0.0, 0.0
		for _, c := range r.Criteria {
			i, has := sel[c.ID]
			if !has {
				continue
			}
			w := c.Decoded().Weight
			if w == nil {
				continue
			}
			raw := MaxScore - float64(i)*step
			num += (raw / MaxScore) * float64(*w)
			den += float64(*w)
		}
		if den == 0 {
			return 0, false
		}
		return (num / den) * MaxScore, true
	}

	total, n := 0.0, 0
	for _, c := range r.Criteria {
		i, has := sel[c.ID]
		if !has {
			continue
		}
		total += MaxScore - float64(i)*step
		n++
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// Failing is the single pass/fail threshold used by every score display.
func Failing(score float64, ok bool) bool { return ok && score < PassThreshold }

// Format renders a score the way rosters and reports show it.
func Format(score float64, ok bool) string {
	if !ok {
		return "Pending"
	}
	return fmt.Sprintf("%.2f", score)
}

// Result is a scored student, shared by the roster, session and report views.
type Result struct {
	StudentID string  `json:"studentId"`
	Score     float64 `json:"score"`
	Scored    bool    `json:"scored"`
	Display   string  `json:"display"`
	Failing   bool    `json:"failing"`
}

func Evaluate(r rubric.Rubric, studentID string, sel domain.Selections) Result {
	s, ok := Score(r, sel)
	return Result{
		StudentID: studentID,
		Score:     s,
		Scored:    ok,
		Display:   Format(s, ok),
		Failing:   Failing(s, ok),
	}
}

// Roster scores every student of a class in roster order.
func Roster(r rubric.Rubric, class domain.Class, rec domain.EvaluationRecord) []Result {
	out := make([]Result, 0, len(class.Students))
	for _, s := range class.Students {
		out = append(out, Evaluate(r, s.ID, rec.For(s.ID)))
	}
	return out
}
