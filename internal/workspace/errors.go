package workspace

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

var (
	ErrDuplicateName    = errors.New("workspace: a rubric with that name already exists")
	ErrInvalidInput     = errors.New("workspace: invalid input")
	ErrUnknownReference = errors.New("workspace: referenced class, rubric or criteria set does not exist")
	ErrNotFound         = errors.New("workspace: not found")
)

// CorrectionRequired is returned by ImportRubric when the weights do not sum
// to 100. Draft is the parsed rubric ready for the editor; nothing was saved.
type CorrectionRequired struct {
	Draft rubric.Draft
	Err   error
}

func (e *CorrectionRequired) Error() string { return e.Err.Error() }
func (e *CorrectionRequired) Unwrap() error { return e.Err }

// DuplicateNameError carries the draft so it can be saved under another
// name with SaveRubricAs.
type DuplicateNameError struct {
	Name  string
	Draft rubric.Draft
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("workspace: a rubric named %q already exists", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }

// ValidationError maps field names to the failed rule.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, f+" "+e.Fields[f])
	}
	return "workspace: invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, rule string) error {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func fromValidator(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(ve))}
	for _, fe := range ve {
		out.Fields[fe.Namespace()] = fe.Tag()
	}
	return out
}
