package rubric

type Mode int

const (
	Unweighted Mode = iota
	Weighted
)

func (m Mode) String() string {
	if m == Weighted {
		return "weighted"
	}
	return "unweighted"
}

// Verdict is the outcome of ValidateWeights.
type Verdict struct {
	Mode        Mode
	TotalWeight int
}

// ValidateWeights decides the weight mode of a set of criteria. When any
// criterion declares a weight, the declared weights must sum to exactly 100;
// criteria without a weight add nothing to the sum. Weights are never
// normalized here: a mismatch is returned for the caller to correct.
func ValidateWeights(criteria []Criterion) (Verdict, error) {
	v := Verdict{Mode: Unweighted}
	for _, c := range criteria {
		if w := c.Decoded().Weight; w != nil {
			v.Mode = Weighted
			v.TotalWeight += *w
		}
	}
	if v.Mode == Weighted && v.TotalWeight != 100 {
		return v, &WeightSumMismatchError{Total: v.TotalWeight}
	}
	return v, nil
}
