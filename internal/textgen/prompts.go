package textgen

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

// Placeholders stored or shown when generation fails.
const (
	DescriptionUnavailable = "The description could not be generated."
	FeedbackUnavailable    = "Feedback could not be generated."
)

// MaxSuggestedCriteria caps SuggestCriteriaPrompt answers.
const MaxSuggestedCriteria = 4

// CodeListSchema asks for a JSON array of strings.
var CodeListSchema = map[string]any{
	"type":  "ARRAY",
	"items": map[string]any{"type": "STRING"},
}

// GeneratedRubric is the JSON shape RubricPrompt asks for.
type GeneratedRubric struct {
	Criteria []struct {
		CriterionName string   `json:"criterion_name"`
		Levels        []string `json:"levels"`
	} `json:"criteria"`
}

func DescriptionPrompt(r rubric.Rubric) string {
	var b strings.Builder
	b.WriteString("Based on the name and indicators of the following rubric, write a concise description of about 250 characters summarizing what it assesses. Reply with the description only.\n\n")
	fmt.Fprintf(&b, "Name: %s\nIndicators:\n", r.Name)
	for _, c := range r.Criteria {
		d := c.Decoded()
		if d.Weight != nil {
			fmt.Fprintf(&b, "- %s (%d%%)\n", d.Name, *d.Weight)
		} else {
			fmt.Fprintf(&b, "- %s\n", d.Name)
		}
	}
	return b.String()
}

func FeedbackPrompt(r rubric.Rubric, student string, sel domain.Selections) string {
	var b strings.Builder
	b.WriteString("Write brief, constructive and encouraging feedback for the student based on the rubric results. Focus on strengths and areas for improvement. Bold only the most important keywords (using **word**), not whole sentences.\n")
	fmt.Fprintf(&b, "Student: %s\nResults:\n", student)
	for _, c := range r.Criteria {
		level := "Not assessed"
		if i, ok := sel[c.ID]; ok && i >= 0 && i < len(c.Levels) {
			level = c.Levels[i]
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Decoded().Name, level)
	}
	return b.String()
}

func SuggestCriteriaPrompt(title string, r rubric.Rubric, set domain.EvalCriteriaSet) string {
	names := make([]string, len(r.Criteria))
	for i, c := range r.Criteria {
		names[i] = c.Decoded().Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the activity title and the rubric to decide which of the following assessment criteria are most relevant. Return at most %d.\n\n", MaxSuggestedCriteria)
	fmt.Fprintf(&b, "Activity title: %q\n\nRubric: %q\nRubric criteria: %s\n\nAvailable assessment criteria (with codes):\n", title, r.Name, strings.Join(names, ", "))
	for _, e := range set.Criteria {
		fmt.Fprintf(&b, "- Code: %s, Description: %s\n", e.Code, e.Text)
	}
	b.WriteString("\nReturn only a JSON array with the codes of the most relevant criteria. Example: [\"1.1\", \"2.3\", \"4.1\"]")
	return b.String()
}

// RubricLevels are the four levels of a generated rubric, best first.
var RubricLevels = []string{"Excellent", "Very good", "Acceptable", "Poor"}

func RubricPrompt(activity string, entries []domain.CriterionEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a rubric from the following information.\n\nActivity to assess: %q\n\nSelected assessment criteria:\n", activity)
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %s\n", e.Code, e.Text)
	}
	fmt.Fprintf(&b, "\nFor each criterion write a description for %d performance levels: %s.\n\n", len(RubricLevels), strings.Join(RubricLevels, ", "))
	b.WriteString(`Reply only with a JSON object with a "criteria" key holding an array of objects. Each object has a "criterion_name" key with the full criterion text (e.g. "1.1. Understands the problem") and a "levels" key with an array of 4 strings, one per level in the order above.`)
	return b.String()
}
