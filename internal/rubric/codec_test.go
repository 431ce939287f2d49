package rubric_test

import (
	"testing"

	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

func TestCodecRoundTrip(t *testing.T) {
	names := []string{"Spelling", "Uses evidence", "1.1. Comprende el problema", "Tone / register"}
	for _, name := range names {
		for _, w := range []int{0, 1, 33, 99, 100} {
			got := rubric.Decode(rubric.Encode(name, rubric.Weight(w)))
			if got.Name != name || got.Weight == nil || *got.Weight != w {
				t.Fatalf("round trip %q/%d: got %q/%v", name, w, got.Name, got.Weight)
			}
		}
		got := rubric.Decode(rubric.Encode(name, nil))
		if got.Name != name || got.Weight != nil {
			t.Fatalf("round trip %q/nil: got %q/%v", name, got.Name, got.Weight)
		}
	}
}

func TestDecodeStripsEmphasis(t *testing.T) {
	got := rubric.Decode("**Clarity (40%)**")
	if got.Name != "Clarity" || got.Weight == nil || *got.Weight != 40 {
		t.Fatalf("got %q/%v", got.Name, got.Weight)
	}
	got = rubric.Decode("  **Clarity**  ")
	if got.Name != "Clarity" || got.Weight != nil {
		t.Fatalf("got %q/%v", got.Name, got.Weight)
	}
}

func TestDecodeToleratesSpaceBeforePercentClose(t *testing.T) {
	got := rubric.Decode("Clarity (25% )")
	if got.Weight == nil || *got.Weight != 25 || got.Name != "Clarity" {
		t.Fatalf("got %q/%v", got.Name, got.Weight)
	}
}

func TestDecodeEmpty(t *testing.T) {
	got := rubric.Decode("")
	if got.Name != "" || got.Weight != nil {
		t.Fatalf("got %+v", got)
	}
}

// A trailing parenthetical that is not exactly "(digits%)" is left in the name,
// while one that is gets read as a weight even if the author meant otherwise.
func TestDecodeKnownAmbiguity(t *testing.T) {
	got := rubric.Decode("Score (50% confidence)")
	if got.Weight != nil || got.Name != "Score (50% confidence)" {
		t.Fatalf("got %q/%v", got.Name, got.Weight)
	}
	got = rubric.Decode("Growth (10%)")
	if got.Weight == nil || *got.Weight != 10 || got.Name != "Growth" {
		t.Fatalf("got %q/%v", got.Name, got.Weight)
	}
}
