package rubric_test

import (
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

func crit(id, name string) rubric.Criterion {
	return rubric.Criterion{ID: id, Name: name, Levels: []string{"a", "b"}}
}

func TestValidateWeights_Unweighted(t *testing.T) {
	v, err := rubric.ValidateWeights([]rubric.Criterion{crit("a", "**A**"), crit("b", "B")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Mode != rubric.Unweighted || v.TotalWeight != 0 {
		t.Fatalf("got %+v", v)
	}
}

func TestValidateWeights_UndeclaredExcludedFromSum(t *testing.T) {
	v, err := rubric.ValidateWeights([]rubric.Criterion{
		crit("a", "A (60%)"), crit("b", "B (40%)"), crit("c", "C"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Mode != rubric.Weighted || v.TotalWeight != 100 {
		t.Fatalf("got %+v", v)
	}
}

func TestValidateWeights_NoNormalization(t *testing.T) {
	criteria := []rubric.Criterion{crit("a", "A (70%)"), crit("b", "B (70%)")}
	_, err := rubric.ValidateWeights(criteria)
	var mm *rubric.WeightSumMismatchError
	if !errors.As(err, &mm) || mm.Total != 140 {
		t.Fatalf("expected mismatch 140, got %v", err)
	}
	if criteria[0].Name != "A (70%)" {
		t.Fatalf("criteria must not be rewritten, got %q", criteria[0].Name)
	}
}

func TestValidateWeights_Idempotent(t *testing.T) {
	for _, criteria := range [][]rubric.Criterion{
		{crit("a", "A (50%)"), crit("b", "B (50%)")},
		{crit("a", "A (50%)"), crit("b", "B (10%)")},
		{crit("a", "A"), crit("b", "B")},
	} {
		v1, err1 := rubric.ValidateWeights(criteria)
		v2, err2 := rubric.ValidateWeights(criteria)
		if v1 != v2 || (err1 == nil) != (err2 == nil) {
			t.Fatalf("verdict changed: %+v/%v vs %+v/%v", v1, err1, v2, err2)
		}
	}
}

func TestDraft_EditAndReencode(t *testing.T) {
	r := rubric.Rubric{
		ID:     "r1",
		Name:   "Essay",
		Levels: []string{"**Good**", "**Poor**"},
		Criteria: []rubric.Criterion{
			crit("a", "**A (30%)**"), crit("b", "**B (30%)**"), crit("c", "**C (30%)**"),
		},
	}
	d := rubric.NewDraft(r)
	if d.Criteria[0].DisplayName != "A" || *d.Criteria[0].Weight != 30 {
		t.Fatalf("decoded draft: %+v", d.Criteria[0])
	}
	if _, err := d.Validate(); !errors.Is(err, rubric.ErrWeightSumMismatch) {
		t.Fatalf("expected mismatch before fix, got %v", err)
	}
	d.SetWeight("c", rubric.Weight(40))
	d.Criteria[1].DisplayName = "Bee"
	if _, err := d.Validate(); err != nil {
		t.Fatalf("validate after fix: %v", err)
	}
	out := d.Rubric()
	if out.Criteria[1].Name != "**Bee (30%)**" || out.Criteria[2].Name != "**C (40%)**" {
		t.Fatalf("re-encoded names: %q %q", out.Criteria[1].Name, out.Criteria[2].Name)
	}
	if out.Criteria[0].ID != "a" {
		t.Fatalf("ids must survive edits, got %q", out.Criteria[0].ID)
	}
	if r.Criteria[2].Name != "**C (30%)**" {
		t.Fatalf("source rubric mutated: %q", r.Criteria[2].Name)
	}
}

func TestDraft_RejectsWeightsOutsideRange(t *testing.T) {
	base := rubric.Draft{
		Name:   "Essay",
		Levels: []string{"Good", "Poor"},
		Criteria: []rubric.DraftCriterion{
			{ID: "structure", DisplayName: "Structure", Weight: rubric.Weight(100), Levels: []string{"", ""}},
			{ID: "spelling", DisplayName: "Spelling", Levels: []string{"", ""}},
		},
	}
	for _, w := range []int{-5, 101, 1000} {
		d := base
		d.Criteria = append([]rubric.DraftCriterion(nil), base.Criteria...)
		d.Criteria[1].Weight = rubric.Weight(w)
		_, err := d.Validate()
		var re *rubric.WeightRangeError
		if !errors.As(err, &re) || re.CriterionID != "spelling" || re.Weight != w {
			t.Fatalf("weight %d: got %v", w, err)
		}
		if !errors.Is(err, rubric.ErrWeightOutOfRange) {
			t.Fatalf("weight %d: not ErrWeightOutOfRange", w)
		}
	}
	d := base
	d.Criteria = append([]rubric.DraftCriterion(nil), base.Criteria...)
	d.Criteria[1].Weight = rubric.Weight(0)
	if v, err := d.Validate(); err != nil || v.TotalWeight != 100 {
		t.Fatalf("zero weight: %+v %v", v, err)
	}
}
