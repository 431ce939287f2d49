package workspace

import (
	"context"
	"strings"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/domain"
)

// SaveClass stores a class from a newline separated roster. A class with the
// same name is replaced, otherwise a new one is created. Students always get
// fresh ids.
func (s *Service) SaveClass(ctx context.Context, name, roster string) (domain.Class, error) {
	ctx, span := s.start(ctx, "SaveClass")
	defer span.End()

	c := domain.Class{Name: strings.TrimSpace(name), Students: domain.RosterFromText(roster)}
	if err := s.validate.Struct(c); err != nil {
		return domain.Class{}, fromValidator(err)
	}

	for _, existing := range s.sync.Classes() {
		if strings.TrimSpace(existing.Name) == c.Name {
			c.ID = existing.ID
			break
		}
	}
	if c.ID != "" {
		if err := s.store.Set(ctx, s.ref(docstore.Classes, c.ID), c); err != nil {
			return domain.Class{}, docstore.WriteFailed(err)
		}
		s.log.Info("class replaced", "class_id", c.ID, "students", len(c.Students))
		return c, nil
	}
	id, err := s.store.Add(ctx, s.query(docstore.Classes), c)
	if err != nil {
		return domain.Class{}, docstore.WriteFailed(err)
	}
	c.ID = id
	s.log.Info("class created", "class_id", id, "students", len(c.Students))
	return c, nil
}

// UpdateClassStudents replaces the roster of an existing class. Students that
// come without an id are given one; existing ids are kept.
func (s *Service) UpdateClassStudents(ctx context.Context, classID string, students []domain.Student) (domain.Class, error) {
	ctx, span := s.start(ctx, "UpdateClassStudents")
	defer span.End()

	c, ok := s.sync.Class(classID)
	if !ok {
		return domain.Class{}, ErrNotFound
	}
	c.Students = c.Students[:0:0]
	for _, st := range students {
		st.Name = strings.TrimSpace(st.Name)
		if st.Name == "" {
			continue
		}
		if st.ID == "" {
			st.ID = domain.NewStudentID()
		}
		c.Students = append(c.Students, st)
	}
	if err := s.validate.Struct(c); err != nil {
		return domain.Class{}, fromValidator(err)
	}
	if err := s.store.Update(ctx, s.ref(docstore.Classes, classID), map[string]any{"students": c.Students}); err != nil {
		return domain.Class{}, docstore.WriteFailed(err)
	}
	return c, nil
}
