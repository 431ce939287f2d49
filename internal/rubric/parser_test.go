package rubric_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

func table(names ...string) string {
	var b strings.Builder
	b.WriteString("# Essay rubric\n\n")
	b.WriteString("| **Indicator** | **Good** | **Poor** |\n")
	b.WriteString("|:---|:---|:---|\n")
	for i, n := range names {
		fmt.Fprintf(&b, "| %s | good %d | poor %d |\n", n, i, i)
	}
	b.WriteString("|  |  |  |\n")
	return b.String()
}

func seqIDs() rubric.ParseOption {
	n := 0
	return rubric.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("c%d", n)
	})
}

func TestParseRubric_NoWeights(t *testing.T) {
	p, err := rubric.ParseRubric("Essay", table("A", "B", "C"), seqIDs())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.HasWeights {
		t.Fatalf("expected hasWeights=false")
	}
	r := p.Rubric
	if r.Name != "Essay" {
		t.Fatalf("name: got %q", r.Name)
	}
	if len(r.Levels) != 2 || r.Levels[0] != "**Good**" || r.Levels[1] != "**Poor**" {
		t.Fatalf("levels: got %v", r.Levels)
	}
	if len(r.Criteria) != 3 {
		t.Fatalf("criteria: got %d", len(r.Criteria))
	}
	if r.Criteria[0].ID != "c1" || r.Criteria[2].ID != "c3" {
		t.Fatalf("ids: got %q %q", r.Criteria[0].ID, r.Criteria[2].ID)
	}
	if r.Criteria[1].Name != "**B**" {
		t.Fatalf("name: got %q", r.Criteria[1].Name)
	}
	if got := r.Criteria[2].Levels; len(got) != 2 || got[0] != "good 2" || got[1] != "poor 2" {
		t.Fatalf("levels: got %v", got)
	}
	if err := r.CheckShape(); err != nil {
		t.Fatalf("shape: %v", err)
	}
}

func TestParseRubric_WeightsSumTo100(t *testing.T) {
	p, err := rubric.ParseRubric("Essay", table("A (30%)", "B (30%)", "**C (40%)**"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.HasWeights || p.TotalWeight != 100 {
		t.Fatalf("got hasWeights=%v total=%d", p.HasWeights, p.TotalWeight)
	}
	if p.Rubric.Criteria[2].Name != "**C (40%)**" {
		t.Fatalf("stored name: got %q", p.Rubric.Criteria[2].Name)
	}
	if _, err := rubric.ValidateWeights(p.Rubric.Criteria); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseRubric_WeightsMismatch(t *testing.T) {
	p, err := rubric.ParseRubric("Essay", table("A (30%)", "B (30%)", "C (30%)"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.TotalWeight != 90 {
		t.Fatalf("total: got %d", p.TotalWeight)
	}
	_, err = rubric.ValidateWeights(p.Rubric.Criteria)
	var mm *rubric.WeightSumMismatchError
	if !errors.As(err, &mm) || mm.Total != 90 {
		t.Fatalf("expected WeightSumMismatch(90), got %v", err)
	}
	if !errors.Is(err, rubric.ErrWeightSumMismatch) {
		t.Fatalf("expected errors.Is ErrWeightSumMismatch")
	}
}

func TestParseRubric_Malformed(t *testing.T) {
	cases := map[string]string{
		"no separator":        "| a | b |\n| c | d |\n",
		"dash-only separator": "| a | b |\n|---|---|\n| c | d |\n",
		"separator first":     "|:---|:---|\n| c | d |\n",
	}
	for name, text := range cases {
		if _, err := rubric.ParseRubric("x", text); !errors.Is(err, rubric.ErrMalformedTable) {
			t.Fatalf("%s: expected ErrMalformedTable, got %v", name, err)
		}
	}
}

func TestParseRubric_Empty(t *testing.T) {
	noRows := "| Indicator | Good | Poor |\n|:--|:--|:--|\n| only-one-cell |\n"
	if _, err := rubric.ParseRubric("x", noRows); !errors.Is(err, rubric.ErrEmptyRubric) {
		t.Fatalf("expected ErrEmptyRubric for no rows, got %v", err)
	}
	noLevels := "| Indicator |\n|:--|\n| A | a |\n"
	if _, err := rubric.ParseRubric("x", noLevels); !errors.Is(err, rubric.ErrEmptyRubric) {
		t.Fatalf("expected ErrEmptyRubric for no levels, got %v", err)
	}
}

func TestParseRubric_FitsLevelCount(t *testing.T) {
	text := "| Ind | L1 | L2 | L3 |\n|:-|:-|:-|:-|\n| A | a1 | a2 | a3 | a4 |\n| B | b1 |\n"
	p, err := rubric.ParseRubric("x", text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := p.Rubric.Criteria[0].Levels; len(got) != 3 || got[2] != "a3" {
		t.Fatalf("truncate: got %v", got)
	}
	if got := p.Rubric.Criteria[1].Levels; len(got) != 3 || got[0] != "b1" || got[1] != "" {
		t.Fatalf("pad: got %v", got)
	}
}

func TestParseRubric_WindowsLineEndings(t *testing.T) {
	text := strings.ReplaceAll(table("A", "B"), "\n", "\r\n")
	p, err := rubric.ParseRubric("x", text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(p.Rubric.Criteria) != 2 || p.Rubric.Criteria[0].Levels[1] != "poor 0" {
		t.Fatalf("got %+v", p.Rubric.Criteria)
	}
}

func TestParseEvalCriteria(t *testing.T) {
	text := "| Code | Text |\n|:---|:---|\n| 1.1 | Comprende el **problema** |\n| 1.2 | Plantea |\n| lonely |\n"
	got, err := rubric.ParseEvalCriteria(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries: got %d", len(got))
	}
	if got[0].Code != "1.1" || got[0].Text != "Comprende el **problema**" {
		t.Fatalf("first: got %+v", got[0])
	}
	if _, err := rubric.ParseEvalCriteria("no table here"); !errors.Is(err, rubric.ErrMalformedTable) {
		t.Fatalf("expected ErrMalformedTable, got %v", err)
	}
	if _, err := rubric.ParseEvalCriteria("|:--|\n| x |\n"); !errors.Is(err, rubric.ErrEmptyRubric) {
		t.Fatalf("expected ErrEmptyRubric, got %v", err)
	}
}

func TestSuggestName(t *testing.T) {
	if got := rubric.SuggestName("essay.MD", ""); got != "essay" {
		t.Fatalf("got %q", got)
	}
	if got := rubric.SuggestName("", "# Lab report\n| a |"); got != "Lab report" {
		t.Fatalf("got %q", got)
	}
	if got := rubric.SuggestName("", "plain"); got != "" {
		t.Fatalf("got %q", got)
	}
}
