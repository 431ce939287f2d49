// Command rubricctl checks rubric files offline and hashes admin passwords.
//
//	rubricctl lint <file.md>
//	rubricctl hash <password>
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "rubricctl:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: rubricctl lint <file.md> | rubricctl hash <password>")

func run(args []string, out io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	switch args[0] {
	case "lint":
		text, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		return lint(filepath.Base(args[1]), string(text), out)
	case "hash":
		h, err := bcrypt.GenerateFromPassword([]byte(args[1]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(h))
		return nil
	}
	return errUsage
}

// lint prints what an import would produce and fails on a weight mismatch.
func lint(filename, text string, out io.Writer) error {
	p, err := rubric.ParseRubric(rubric.SuggestName(filename, text), text)
	if err != nil {
		return err
	}
	r := p.Rubric
	fmt.Fprintf(out, "name:     %s\n", r.Name)
	fmt.Fprintf(out, "levels:   %d\n", len(r.Levels))
	for i, l := range r.Levels {
		fmt.Fprintf(out, "  %d. %s\n", i+1, rubric.StripEmphasis(l))
	}
	fmt.Fprintf(out, "criteria: %d\n", len(r.Criteria))
	for _, c := range r.Criteria {
		d := c.Decoded()
		if d.Weight != nil {
			fmt.Fprintf(out, "  - %s (%d%%)\n", d.Name, *d.Weight)
		} else {
			fmt.Fprintf(out, "  - %s\n", d.Name)
		}
	}
	v, err := rubric.ValidateWeights(r.Criteria)
	fmt.Fprintf(out, "weights:  %s, total %d\n", v.Mode, v.TotalWeight)
	return err
}
