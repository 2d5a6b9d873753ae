// Package llm adapts text-generation providers to a single blocking Generate call.
package llm

import "context"

// Generator turns a system and user instruction into free text. Implementations give
// no guarantee about the structure of the returned string and may return "" on
// provider failure.
type Generator interface {
	Generate(ctx context.Context, system, user string, temperature float64) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, system, user string, temperature float64) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	return f(ctx, system, user, temperature)
}
