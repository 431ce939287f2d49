package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

func TestLint(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "essay.md")
	table := "| Indicator | Good | Poor |\n|:---|:---|:---|\n| Ideas (70%) | a | b |\n| Style (30%) | c | d |\n"
	if err := os.WriteFile(good, []byte(table), 0o600); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	if err := run([]string{"lint", good}, &out); err != nil {
		t.Fatalf("lint: %v", err)
	}
	for _, want := range []string{"name:     essay", "  - Ideas (70%)", "weights:  weighted, total 100"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in:\n%s", want, out.String())
		}
	}

	bad := filepath.Join(dir, "bad.md")
	_ = os.WriteFile(bad, []byte(strings.Replace(table, "30%", "20%", 1)), 0o600)
	out.Reset()
	if err := run([]string{"lint", bad}, &out); !errors.Is(err, rubric.ErrWeightSumMismatch) {
		t.Fatalf("want mismatch, got %v", err)
	}
}

func TestHash(t *testing.T) {
	var out strings.Builder
	if err := run([]string{"hash", "s3cret"}, &out); err != nil {
		t.Fatalf("hash: %v", err)
	}
	h := strings.TrimSpace(out.String())
	if bcrypt.CompareHashAndPassword([]byte(h), []byte("s3cret")) != nil {
		t.Fatalf("hash does not verify: %q", h)
	}
	if err := run([]string{"nope"}, &out); !errors.Is(err, errUsage) {
		t.Fatalf("usage: %v", err)
	}
}
