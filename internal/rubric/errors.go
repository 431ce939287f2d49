package rubric

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedTable    = errors.New("rubric: no markdown table separator row found")
	ErrEmptyRubric       = errors.New("rubric: no criteria or levels could be extracted")
	ErrWeightSumMismatch = errors.New("rubric: criterion weights must sum to 100")
	ErrWeightOutOfRange  = errors.New("rubric: criterion weight must be between 0 and 100")
)

// WeightSumMismatchError carries the offending total. It matches
// ErrWeightSumMismatch with errors.Is.
type WeightSumMismatchError struct {
	Total int
}

func (e *WeightSumMismatchError) Error() string {
	return fmt.Sprintf("rubric: criterion weights sum to %d%%, they must sum to 100%%", e.Total)
}

func (e *WeightSumMismatchError) Is(target error) bool { return target == ErrWeightSumMismatch }

// WeightRangeError names the criterion whose weight is outside 0..100. It
// matches ErrWeightOutOfRange with errors.Is.
type WeightRangeError struct {
	CriterionID string
	Weight      int
}

func (e *WeightRangeError) Error() string {
	return fmt.Sprintf("rubric: criterion %s has weight %d%%, it must be between 0 and 100", e.CriterionID, e.Weight)
}

func (e *WeightRangeError) Is(target error) bool { return target == ErrWeightOutOfRange }
