package workspace

import (
	"context"
	"strings"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

type CriteriaSetInput struct {
	ID      string                  `json:"id,omitempty"`
	Subject string                  `json:"subject"`
	Course  string                  `json:"course"`
	Entries []domain.CriterionEntry `json:"criteria"`
}

// SaveEvalCriteria creates a criteria set, or overwrites the one named by
// in.ID. Rows with both code and text blank are dropped before validation.
func (s *Service) SaveEvalCriteria(ctx context.Context, in CriteriaSetInput) (domain.EvalCriteriaSet, error) {
	ctx, span := s.start(ctx, "SaveEvalCriteria")
	defer span.End()

	set := domain.EvalCriteriaSet{
		ID:      in.ID,
		Subject: strings.TrimSpace(in.Subject),
		Course:  strings.TrimSpace(in.Course),
	}
	for _, e := range in.Entries {
		e.Code = strings.TrimSpace(e.Code)
		e.Text = strings.TrimSpace(e.Text)
		if e.Code == "" && e.Text == "" {
			continue
		}
		set.Criteria = append(set.Criteria, e)
	}
	if err := s.validate.Struct(set); err != nil {
		return domain.EvalCriteriaSet{}, fromValidator(err)
	}

	if set.ID != "" {
		if _, ok := s.sync.CriteriaSet(set.ID); !ok {
			return domain.EvalCriteriaSet{}, ErrNotFound
		}
		if err := s.store.Set(ctx, s.ref(docstore.EvalCriteria, set.ID), set); err != nil {
			return domain.EvalCriteriaSet{}, docstore.WriteFailed(err)
		}
		return set, nil
	}
	id, err := s.store.Add(ctx, s.query(docstore.EvalCriteria), set)
	if err != nil {
		return domain.EvalCriteriaSet{}, docstore.WriteFailed(err)
	}
	set.ID = id
	s.log.Info("criteria set saved", "set_id", id, "entries", len(set.Criteria))
	return set, nil
}

// ImportEvalCriteria parses a two column markdown table (code, text) into a
// criteria set and saves it.
func (s *Service) ImportEvalCriteria(ctx context.Context, id, subject, course, text string) (domain.EvalCriteriaSet, error) {
	entries, err := rubric.ParseEvalCriteria(text)
	if err != nil {
		return domain.EvalCriteriaSet{}, err
	}
	return s.SaveEvalCriteria(ctx, CriteriaSetInput{ID: id, Subject: subject, Course: course, Entries: entries})
}
