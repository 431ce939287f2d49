package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/grading"
	"github.com/mind-engage/mindengage-rubrics/internal/integrity"
	"github.com/mind-engage/mindengage-rubrics/internal/report"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
	"github.com/mind-engage/mindengage-rubrics/internal/storage"
)

type NewActivity struct {
	Title            string                  `json:"title" validate:"required"`
	ClassID          string                  `json:"classId" validate:"required"`
	RubricID         string                  `json:"rubricId" validate:"required"`
	EvalCriteriaID   string                  `json:"evalCriteriaId,omitempty"`
	SelectedCriteria []domain.CriterionEntry `json:"selectedCriteria"`
}

// CreateActivity binds an existing class and rubric. The selected criteria
// are copied, so later edits of the criteria set do not reach the activity.
func (s *Service) CreateActivity(ctx context.Context, in NewActivity) (domain.Activity, error) {
	ctx, span := s.start(ctx, "CreateActivity")
	defer span.End()

	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return domain.Activity{}, fromValidator(err)
	}
	if _, ok := s.sync.Class(in.ClassID); !ok {
		return domain.Activity{}, fmt.Errorf("%w: class %s", ErrUnknownReference, in.ClassID)
	}
	if _, ok := s.sync.Rubric(in.RubricID); !ok {
		return domain.Activity{}, fmt.Errorf("%w: rubric %s", ErrUnknownReference, in.RubricID)
	}
	a := domain.Activity{
		Title:            in.Title,
		ClassID:          in.ClassID,
		RubricID:         in.RubricID,
		SelectedCriteria: append([]domain.CriterionEntry{}, in.SelectedCriteria...),
	}
	if in.EvalCriteriaID != "" {
		if _, ok := s.sync.CriteriaSet(in.EvalCriteriaID); !ok {
			return domain.Activity{}, fmt.Errorf("%w: criteria set %s", ErrUnknownReference, in.EvalCriteriaID)
		}
		id := in.EvalCriteriaID
		a.EvalCriteriaID = &id
	}
	now := s.now().UTC()
	a.CreatedAt, a.LastModified = now, now

	id, err := s.store.Add(ctx, s.query(docstore.Activities), a)
	if err != nil {
		return domain.Activity{}, docstore.WriteFailed(err)
	}
	a.ID = id
	s.log.Info("activity created", "activity_id", id, "class_id", a.ClassID, "rubric_id", a.RubricID)
	return a, nil
}

// OpenActivity resolves the activity's class and rubric and makes it the
// active activity, whose evaluations the caches then follow.
func (s *Service) OpenActivity(ctx context.Context, id string) (domain.Activity, domain.Class, rubric.Rubric, error) {
	a, c, r, err := s.resolve(id)
	if err != nil {
		return a, c, r, err
	}
	if err := s.sync.SetActiveActivity(ctx, id); err != nil {
		return domain.Activity{}, domain.Class{}, rubric.Rubric{}, err
	}
	return a, c, r, nil
}

func (s *Service) CloseActivity(ctx context.Context) error {
	return s.sync.SetActiveActivity(ctx, "")
}

func (s *Service) resolve(activityID string) (domain.Activity, domain.Class, rubric.Rubric, error) {
	a, ok := s.sync.Activity(activityID)
	if !ok {
		return domain.Activity{}, domain.Class{}, rubric.Rubric{}, ErrNotFound
	}
	c, ok := s.sync.Class(a.ClassID)
	if !ok {
		return a, domain.Class{}, rubric.Rubric{}, fmt.Errorf("%w: class %s", ErrUnknownReference, a.ClassID)
	}
	r, ok := s.sync.Rubric(a.RubricID)
	if !ok {
		return a, c, rubric.Rubric{}, fmt.Errorf("%w: rubric %s", ErrUnknownReference, a.RubricID)
	}
	return a, c, r, nil
}

type ActivityFilter struct {
	Search   string
	ClassID  string
	RubricID string
}

// FilterActivities returns the cached activities, newest first, matching every
// non-empty filter field. Search matches the title case-insensitively.
func (s *Service) FilterActivities(f ActivityFilter) []domain.Activity {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	var out []domain.Activity
	for _, a := range s.sync.Activities() {
		if f.ClassID != "" && a.ClassID != f.ClassID {
			continue
		}
		if f.RubricID != "" && a.RubricID != f.RubricID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(a.Title), needle) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// SaveEvaluation writes one student's selections into the activity's
// evaluation document without touching other students.
func (s *Service) SaveEvaluation(ctx context.Context, activityID, studentID string, sel domain.Selections) error {
	ctx, span := s.start(ctx, "SaveEvaluation")
	defer span.End()

	_, c, r, err := s.resolve(activityID)
	if err != nil {
		return err
	}
	if _, ok := c.Student(studentID); !ok {
		return fmt.Errorf("%w: student %s", ErrNotFound, studentID)
	}
	for critID, lvl := range sel {
		if lvl < 0 || lvl >= len(r.Levels) {
			return invalid("Selections."+critID, "level")
		}
	}
	if sel == nil {
		sel = domain.Selections{}
	}

	err = s.store.Merge(ctx, s.ref(docstore.Evaluations, activityID), map[string]any{studentID: sel})
	if err != nil {
		return docstore.WriteFailed(err)
	}
	err = s.store.Update(ctx, s.ref(docstore.Activities, activityID), map[string]any{"lastModified": s.now().UTC()})
	if err != nil {
		s.log.Warn("lastModified update failed", "activity_id", activityID, "error", err)
	}
	return nil
}

// Evaluations returns the activity's record, from the caches when it is the
// active activity and from the store otherwise.
func (s *Service) Evaluations(ctx context.Context, activityID string) (domain.EvaluationRecord, error) {
	if active, rec := s.sync.Evaluations(); active == activityID {
		return rec, nil
	}
	d, err := s.store.Get(ctx, s.ref(docstore.Evaluations, activityID))
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.EvaluationRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	rec := domain.EvaluationRecord{}
	if err := d.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Scores returns one result per student, in roster order.
func (s *Service) Scores(ctx context.Context, activityID string) ([]grading.Result, error) {
	_, c, r, err := s.resolve(activityID)
	if err != nil {
		return nil, err
	}
	rec, err := s.Evaluations(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return grading.Roster(r, c, rec), nil
}

// Report builds the report model for an activity.
func (s *Service) Report(ctx context.Context, activityID string) (report.Model, error) {
	ctx, span := s.start(ctx, "Report")
	defer span.End()

	var (
		a   domain.Activity
		c   domain.Class
		r   rubric.Rubric
		rec domain.EvaluationRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, c, r, err = s.resolve(activityID)
		return err
	})
	g.Go(func() (err error) {
		rec, err = s.Evaluations(gctx, activityID)
		return err
	})
	if err := g.Wait(); err != nil {
		return report.Model{}, err
	}
	return report.Build(a, c, r, rec, s.now()), nil
}

// ArchiveReport exports the report and stores it in the blob store, returning
// the key.
func (s *Service) ArchiveReport(ctx context.Context, activityID string, exp report.Exporter, ext string) (string, error) {
	if s.blobs == nil {
		return "", errors.New("workspace: no blob store configured")
	}
	m, err := s.Report(ctx, activityID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := exp.Export(ctx, &b, m); err != nil {
		return "", err
	}
	return s.blobs.Put(ctx, storage.ReportKey(s.userID, activityID, ext), strings.NewReader(b.String()))
}

// RequestDelete checks whether the entity can be deleted. The name reported in
// a blocked decision is taken from the caches.
func (s *Service) RequestDelete(kind integrity.Kind, id string) (integrity.Decision, error) {
	name, ok := s.displayName(kind, id)
	if !ok {
		return integrity.Decision{}, ErrNotFound
	}
	return s.guard.RequestDelete(kind, id, name), nil
}

// ConfirmDelete deletes after the user confirmed. Dependents are checked again.
func (s *Service) ConfirmDelete(ctx context.Context, kind integrity.Kind, id string) error {
	ctx, span := s.start(ctx, "ConfirmDelete")
	defer span.End()

	name, ok := s.displayName(kind, id)
	if !ok {
		return ErrNotFound
	}
	if err := s.guard.ConfirmDelete(ctx, kind, id, name); err != nil {
		return err
	}
	if kind == integrity.KindActivity {
		if active, _ := s.sync.Evaluations(); active == id {
			return s.sync.SetActiveActivity(ctx, "")
		}
	}
	return nil
}

func (s *Service) displayName(kind integrity.Kind, id string) (string, bool) {
	switch kind {
	case integrity.KindClass:
		c, ok := s.sync.Class(id)
		return c.Name, ok
	case integrity.KindRubric:
		r, ok := s.sync.Rubric(id)
		return rubric.StripEmphasis(r.Name), ok
	case integrity.KindEvalCriteria:
		set, ok := s.sync.CriteriaSet(id)
		return set.DisplayName(), ok
	case integrity.KindActivity:
		a, ok := s.sync.Activity(id)
		return a.Title, ok
	}
	return "", false
}
