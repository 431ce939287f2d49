// Package textgen talks to a natural-language generation service. Callers
// treat every failure the same way: log it and fall back to a placeholder.
package textgen

import (
	"context"
	"errors"
	"fmt"
)

var ErrGenerationFailed = errors.New("textgen: generation failed")

// Generator turns a prompt into text, or into JSON decoded into out.
// schema, when non-nil, is a response schema in the service's format.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, schema map[string]any, out any) error
}

func failed(err error) error {
	if err == nil || errors.Is(err, ErrGenerationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}

// Disabled is used when no API key is configured.
type Disabled struct{}

func (Disabled) GenerateText(context.Context, string) (string, error) {
	return "", failed(errors.New("text generation is not configured"))
}

func (Disabled) GenerateJSON(context.Context, string, map[string]any, any) error {
	return failed(errors.New("text generation is not configured"))
}
