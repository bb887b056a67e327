package facts

import (
	"context"
	"fmt"

	"github.com/bobarin/factshorts/internal/models"
	"github.com/rs/zerolog/log"
)

// Source produces raw, line-oriented fact text.
type Source interface {
	GenerateFacts(ctx context.Context) (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (string, error)

func (f SourceFunc) GenerateFacts(ctx context.Context) (string, error) { return f(ctx) }

// GenerationError reports a failed call to the fact source. Collect recovers
// from it with the fallback list; it is only ever logged.
type GenerationError struct {
	Attempt int
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("fact generation attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Options controls Collect. Zero values fall back to the package defaults.
type Options struct {
	Attempts int
	Min      int
	Max      int
	Fallback []string
}

func (o Options) withDefaults() Options {
	if o.Attempts < 1 {
		o.Attempts = 1
	}
	if o.Min <= 0 {
		o.Min = MinFacts
	}
	if o.Max <= 0 {
		o.Max = MaxFacts
	}
	if o.Fallback == nil {
		o.Fallback = Fallback
	}
	return o
}

// Collect asks src for facts until it yields at least Min usable lines or the
// attempts run out. A source error ends the loop early; it is not retried.
// The returned FactSet always has between Min and Max entries as long as the
// fallback list is at least Min long.
func Collect(ctx context.Context, src Source, opts Options) models.FactSet {
	opts = opts.withDefaults()

	var parsed []string
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if ctx.Err() != nil {
			break
		}

		raw, err := src.GenerateFacts(ctx)
		if err != nil {
			genErr := &GenerationError{Attempt: attempt, Err: err}
			log.Warn().Err(genErr).Msg("[Facts] source failed, using fallback facts")
			break
		}

		parsed = Parse(raw)
		log.Debug().Int("attempt", attempt).Int("parsed", len(parsed)).Msg("[Facts] parsed source output")

		if len(parsed) >= opts.Min {
			break
		}
	}

	selected := Select(parsed, opts.Fallback, opts.Min, opts.Max)
	if len(parsed) < opts.Min {
		log.Info().
			Int("parsed", len(parsed)).
			Int("padded", len(selected)-len(parsed)).
			Msg("[Facts] padded with fallback facts")
	}

	return models.FactSet(selected)
}
