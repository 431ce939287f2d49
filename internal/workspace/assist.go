package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
	"github.com/mind-engage/mindengage-rubrics/internal/textgen"
)

func generationFailed(err error) error {
	if errors.Is(err, textgen.ErrGenerationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", textgen.ErrGenerationFailed, err)
}

// SuggestCriteria asks the generator which entries of the criteria set fit
// the activity. Codes not in the set are dropped and at most
// textgen.MaxSuggestedCriteria entries are returned, in set order.
func (s *Service) SuggestCriteria(ctx context.Context, title, rubricID, setID string) ([]domain.CriterionEntry, error) {
	ctx, span := s.start(ctx, "SuggestCriteria")
	defer span.End()

	r, ok := s.sync.Rubric(rubricID)
	if !ok {
		return nil, fmt.Errorf("%w: rubric %s", ErrUnknownReference, rubricID)
	}
	set, ok := s.sync.CriteriaSet(setID)
	if !ok {
		return nil, fmt.Errorf("%w: criteria set %s", ErrUnknownReference, setID)
	}

	var codes []string
	if err := s.gen.GenerateJSON(ctx, textgen.SuggestCriteriaPrompt(title, r, set), textgen.CodeListSchema, &codes); err != nil {
		s.log.Warn("criteria suggestion failed", "set_id", setID, "error", err)
		return nil, generationFailed(err)
	}
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[strings.TrimSpace(c)] = true
	}
	var out []domain.CriterionEntry
	for _, e := range set.Criteria {
		if want[e.Code] && len(out) < textgen.MaxSuggestedCriteria {
			out = append(out, e)
		}
	}
	return out, nil
}

// GenerateRubricDraft asks the generator for a rubric covering entries. The
// draft comes back unsaved, with every weight at 0, so it fails validation
// until the weights are set in the editor.
func (s *Service) GenerateRubricDraft(ctx context.Context, title, description string, entries []domain.CriterionEntry) (rubric.Draft, error) {
	ctx, span := s.start(ctx, "GenerateRubricDraft")
	defer span.End()

	if strings.TrimSpace(title) == "" {
		return rubric.Draft{}, invalid("Title", "required")
	}
	if len(entries) == 0 {
		return rubric.Draft{}, invalid("Entries", "min")
	}
	activity := strings.TrimSpace(title)
	if d := strings.TrimSpace(description); d != "" {
		activity += ": " + d
	}

	var gen textgen.GeneratedRubric
	if err := s.gen.GenerateJSON(ctx, textgen.RubricPrompt(activity, entries), nil, &gen); err != nil {
		s.log.Warn("rubric generation failed", "error", err)
		return rubric.Draft{}, generationFailed(err)
	}
	if len(gen.Criteria) == 0 {
		return rubric.Draft{}, generationFailed(errors.New("no criteria in response"))
	}

	d := rubric.Draft{Name: activity}
	for _, l := range textgen.RubricLevels {
		d.Levels = append(d.Levels, rubric.Emphasize(l))
	}
	for _, c := range gen.Criteria {
		levels := make([]string, len(d.Levels))
		copy(levels, c.Levels)
		d.Criteria = append(d.Criteria, rubric.DraftCriterion{
			ID:          "criterion-" + uuid.NewString(),
			DisplayName: strings.TrimSpace(c.CriterionName),
			Weight:      rubric.Weight(0),
			Levels:      levels,
		})
	}
	return d, nil
}

// StudentFeedback returns generated feedback for one student's selections,
// or textgen.FeedbackUnavailable when generation fails.
func (s *Service) StudentFeedback(ctx context.Context, r rubric.Rubric, student string, sel domain.Selections) string {
	ctx, span := s.start(ctx, "StudentFeedback")
	defer span.End()

	text, err := s.gen.GenerateText(ctx, textgen.FeedbackPrompt(r, student, sel))
	if err != nil || strings.TrimSpace(text) == "" {
		s.log.Warn("feedback generation failed", "error", err)
		return textgen.FeedbackUnavailable
	}
	return text
}

// FeedbackFor generates feedback for a student's saved evaluation.
func (s *Service) FeedbackFor(ctx context.Context, activityID, studentID string) (string, error) {
	_, c, r, err := s.resolve(activityID)
	if err != nil {
		return "", err
	}
	st, ok := c.Student(studentID)
	if !ok {
		return "", fmt.Errorf("%w: student %s", ErrNotFound, studentID)
	}
	rec, err := s.Evaluations(ctx, activityID)
	if err != nil {
		return "", err
	}
	return s.StudentFeedback(ctx, r, st.Name, rec.For(studentID)), nil
}
