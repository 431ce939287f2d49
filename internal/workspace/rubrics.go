package workspace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
	"github.com/mind-engage/mindengage-rubrics/internal/storage"
	"github.com/mind-engage/mindengage-rubrics/internal/textgen"
)

const describeTimeout = 2 * time.Minute

type ImportRubricInput struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Text     string `json:"text" validate:"required"`
}

// ImportRubric parses a markdown table and saves it as a new rubric.
// A weight mismatch returns *CorrectionRequired and a taken name returns
// *DuplicateNameError; in both cases nothing is saved.
func (s *Service) ImportRubric(ctx context.Context, in ImportRubricInput) (rubric.Rubric, error) {
	ctx, span := s.start(ctx, "ImportRubric")
	defer span.End()

	if err := s.validate.Struct(in); err != nil {
		return rubric.Rubric{}, fromValidator(err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = rubric.SuggestName(in.Filename, in.Text)
	}
	if name == "" {
		return rubric.Rubric{}, invalid("Name", "required")
	}

	parsed, err := rubric.ParseRubric(name, in.Text)
	if err != nil {
		return rubric.Rubric{}, err
	}
	if _, err := rubric.ValidateWeights(parsed.Rubric.Criteria); err != nil {
		return rubric.Rubric{}, &CorrectionRequired{Draft: rubric.NewDraft(parsed.Rubric), Err: err}
	}
	if s.rubricNameTaken(name, "") {
		return rubric.Rubric{}, &DuplicateNameError{Name: name, Draft: rubric.NewDraft(parsed.Rubric)}
	}

	r, err := s.createRubric(ctx, parsed.Rubric)
	if err != nil {
		return rubric.Rubric{}, err
	}
	s.archiveImport(ctx, r.ID, in.Text)
	return r, nil
}

// SaveRubricAs saves a draft as a new rubric under newName.
func (s *Service) SaveRubricAs(ctx context.Context, d rubric.Draft, newName string) (rubric.Rubric, error) {
	d.ID = ""
	d.Name = newName
	return s.UpdateRubric(ctx, d)
}

// UpdateRubric validates and stores an edited rubric. A draft without an id is
// created, otherwise the existing rubric is updated. The description is
// regenerated in the background either way.
func (s *Service) UpdateRubric(ctx context.Context, d rubric.Draft) (rubric.Rubric, error) {
	ctx, span := s.start(ctx, "UpdateRubric")
	defer span.End()

	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return rubric.Rubric{}, invalid("Name", "required")
	}
	var wr *rubric.WeightRangeError
	if err := d.CheckWeights(); errors.As(err, &wr) {
		return rubric.Rubric{}, invalid("Criteria."+wr.CriterionID+".Weight", "range")
	}
	r := d.Rubric()
	if err := r.CheckShape(); err != nil {
		return rubric.Rubric{}, err
	}
	if _, err := rubric.ValidateWeights(r.Criteria); err != nil {
		return rubric.Rubric{}, err
	}
	if s.rubricNameTaken(r.Name, r.ID) {
		return rubric.Rubric{}, &DuplicateNameError{Name: r.Name, Draft: d}
	}

	if r.ID == "" {
		return s.createRubric(ctx, r)
	}
	if _, ok := s.sync.Rubric(r.ID); !ok {
		return rubric.Rubric{}, ErrNotFound
	}
	err := s.store.Update(ctx, s.ref(docstore.Rubrics, r.ID), map[string]any{
		"name":     r.Name,
		"levels":   r.Levels,
		"criteria": r.Criteria,
	})
	if err != nil {
		return rubric.Rubric{}, docstore.WriteFailed(err)
	}
	s.describeAsync(r)
	return r, nil
}

func (s *Service) SuggestRubricName(filename, text string) string {
	return rubric.SuggestName(filename, text)
}

func (s *Service) createRubric(ctx context.Context, r rubric.Rubric) (rubric.Rubric, error) {
	r.ID = ""
	r.Description = nil
	id, err := s.store.Add(ctx, s.query(docstore.Rubrics), r)
	if err != nil {
		return rubric.Rubric{}, docstore.WriteFailed(err)
	}
	r.ID = id
	s.log.Info("rubric saved", "rubric_id", id, "criteria", len(r.Criteria))
	s.describeAsync(r)
	return r, nil
}

// rubricNameTaken compares trimmed names exactly, ignoring the rubric exceptID.
func (s *Service) rubricNameTaken(name, exceptID string) bool {
	name = strings.TrimSpace(name)
	for _, r := range s.sync.Rubrics() {
		if r.ID != exceptID && strings.TrimSpace(r.Name) == name {
			return true
		}
	}
	return false
}

// describeAsync generates the rubric description and writes only that field.
func (s *Service) describeAsync(r rubric.Rubric) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), describeTimeout)
		defer cancel()

		desc, err := s.gen.GenerateText(ctx, textgen.DescriptionPrompt(r))
		if err != nil || desc == "" {
			s.log.Warn("description generation failed", "rubric_id", r.ID, "error", err)
			desc = textgen.DescriptionUnavailable
		}
		err = s.store.Update(ctx, s.ref(docstore.Rubrics, r.ID), map[string]any{"description": desc})
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			s.log.Warn("description update failed", "rubric_id", r.ID, "error", err)
		}
	}()
}

func (s *Service) archiveImport(ctx context.Context, rubricID, text string) {
	if s.blobs == nil {
		return
	}
	if _, err := s.blobs.Put(ctx, storage.ImportKey(s.userID, rubricID), strings.NewReader(text)); err != nil {
		s.log.Warn("import archive failed", "rubric_id", rubricID, "error", err)
	}
}
