package rubric

import (
	"regexp"
	"strconv"
	"strings"
)

// weightPattern finds a "(NN%)" weight declaration. It is not anchored at the
// end: "Score (50% confidence)" does not match, but "Score (50%) x" does and
// loses the trailing text. Kept for compatibility with existing rubric files.
var weightPattern = regexp.MustCompile(`(.*)\s*\((\d{1,3})%\s*\)`)

const emphasis = "**"

// Decoded is the structured view of an encoded criterion name.
type Decoded struct {
	Name   string
	Weight *int
}

// StripEmphasis removes markdown bold markers.
func StripEmphasis(s string) string { return strings.ReplaceAll(s, emphasis, "") }

// Emphasize wraps s in markdown bold markers.
func Emphasize(s string) string { return emphasis + s + emphasis }

// Encode produces "name" or "name (NN%)".
func Encode(name string, weight *int) string {
	if weight == nil {
		return name
	}
	return name + " (" + strconv.Itoa(*weight) + "%)"
}

// Decode is the inverse of Encode. Emphasis markup is stripped first.
func Decode(raw string) Decoded {
	if raw == "" {
		return Decoded{}
	}
	cleaned := StripEmphasis(raw)
	if m := weightPattern.FindStringSubmatch(cleaned); m != nil {
		w, err := strconv.Atoi(m[2])
		if err == nil {
			return Decoded{Name: strings.TrimSpace(m[1]), Weight: &w}
		}
	}
	return Decoded{Name: strings.TrimSpace(cleaned)}
}

// Weight is a convenience for building *int weights.
func Weight(n int) *int { return &n }
