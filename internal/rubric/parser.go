package rubric

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-rubrics/internal/domain"
)

var (
	rubricSeparator   = regexp.MustCompile(`^\|?\s*:-+`)
	criteriaSeparator = regexp.MustCompile(`^\|?\s*:-`)
)

// Parsed is a rubric read from a markdown table, before weight validation.
type Parsed struct {
	Rubric      Rubric
	HasWeights  bool
	TotalWeight int
}

// ParseOption configures ParseRubric.
type ParseOption func(*parseConfig)

type parseConfig struct {
	newID func() string
}

// WithIDFunc overrides how criterion ids are generated.
func WithIDFunc(fn func() string) ParseOption {
	return func(c *parseConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func defaultCriterionID() string { return "criterion-" + uuid.NewString() }

// ParseRubric reads a pipe table: the header row's cells after the first are
// level labels, each following row is a criterion whose first cell is its name
// (optionally suffixed with "(NN%)") and the rest are level descriptions.
func ParseRubric(name, text string, opts ...ParseOption) (Parsed, error) {
	cfg := &parseConfig{newID: defaultCriterionID}
	for _, o := range opts {
		o(cfg)
	}

	lines := splitLines(text)
	sep := indexOf(lines, rubricSeparator)
	if sep <= 0 {
		return Parsed{}, ErrMalformedTable
	}

	header := splitCells(lines[sep-1], cleanCell)
	var levels []string
	if len(header) > 1 {
		levels = header[1:]
	}

	out := Parsed{}
	var criteria []Criterion
	for _, line := range lines[sep+1:] {
		parts := splitCells(line, cleanCell)
		if len(parts) < 2 {
			continue
		}
		if w := Decode(parts[0]).Weight; w != nil {
			out.HasWeights = true
			out.TotalWeight += *w
		}
		criteria = append(criteria, Criterion{
			ID:     cfg.newID(),
			Name:   Emphasize(parts[0]),
			Levels: fitLevels(parts[1:], len(levels)),
		})
	}

	if len(criteria) == 0 || len(levels) == 0 {
		return Parsed{}, ErrEmptyRubric
	}

	wrapped := make([]string, len(levels))
	for i, l := range levels {
		wrapped[i] = Emphasize(l)
	}
	out.Rubric = Rubric{Name: name, Levels: wrapped, Criteria: criteria}
	return out, nil
}

// ParseEvalCriteria reads a two-column code/text table. Emphasis is kept as is.
func ParseEvalCriteria(text string) ([]domain.CriterionEntry, error) {
	lines := splitLines(text)
	sep := indexOf(lines, criteriaSeparator)
	if sep < 0 {
		return nil, ErrMalformedTable
	}
	var out []domain.CriterionEntry
	for _, line := range lines[sep+1:] {
		parts := splitCells(line, strings.TrimSpace)
		if len(parts) < 2 {
			continue
		}
		out = append(out, domain.CriterionEntry{Code: parts[0], Text: parts[1]})
	}
	if len(out) == 0 {
		return nil, ErrEmptyRubric
	}
	return out, nil
}

// SuggestName derives a rubric name from an upload: the file name without its
// .md extension, or else a leading "# " heading.
func SuggestName(filename, text string) string {
	name := strings.TrimSpace(filename)
	if len(name) >= 3 && strings.EqualFold(name[len(name)-3:], ".md") {
		name = name[:len(name)-3]
	}
	if name != "" {
		return name
	}
	lines := splitLines(text)
	if len(lines) > 0 && strings.HasPrefix(lines[0], "# ") {
		return strings.TrimSpace(lines[0][2:])
	}
	return ""
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

func indexOf(lines []string, re *regexp.Regexp) int {
	for i, l := range lines {
		if re.MatchString(l) {
			return i
		}
	}
	return -1
}

func cleanCell(s string) string { return strings.TrimSpace(StripEmphasis(s)) }

// splitCells splits on "|" and drops empty fragments after cleaning.
func splitCells(line string, clean func(string) string) []string {
	var out []string
	for _, p := range strings.Split(line, "|") {
		if c := clean(p); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func fitLevels(cells []string, n int) []string {
	out := make([]string, n)
	copy(out, cells)
	return out
}
