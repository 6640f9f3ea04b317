// Package recognize turns formula crops into LaTeX via an ordered chain of
// recognition backends: a locally hosted model first, then remote services.
// The chain short-circuits on the first non-empty result; every backend
// failure is logged and swallowed so recognition never aborts a request.
package recognize

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Backend is one recognition service in the chain.
type Backend interface {
	Name() string
	// Available reports whether the backend is configured and usable;
	// unavailable backends are skipped without an attempt.
	Available() bool
	// Recognize converts the crop at imagePath to a LaTeX string. An empty
	// result is treated as a failure by the dispatcher.
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Dispatcher tries backends in order. It is stateless and safe for
// concurrent use across regions and pages.
type Dispatcher struct {
	backends []Backend
	log      zerolog.Logger
}

// NewDispatcher builds a dispatcher over the given chain. Order matters:
// earlier backends are preferred.
func NewDispatcher(log zerolog.Logger, backends ...Backend) *Dispatcher {
	return &Dispatcher{backends: backends, log: log}
}

// Recognize runs the fallback chain for one crop and returns the first
// successful non-empty LaTeX string. It returns ("", false) when every
// configured backend failed or none are configured; it never returns an
// error. Each backend gets exactly one attempt, with no retries.
func (d *Dispatcher) Recognize(ctx context.Context, imagePath string) (string, bool) {
	for _, b := range d.backends {
		if !b.Available() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", false
		}

		latex, err := b.Recognize(ctx, imagePath)
		if err != nil {
			d.log.Warn().Str("backend", b.Name()).Err(err).Msg("recognition backend failed")
			continue
		}
		latex = strings.TrimSpace(latex)
		if latex == "" {
			d.log.Warn().Str("backend", b.Name()).Msg("recognition backend returned no text")
			continue
		}
		return latex, true
	}
	return "", false
}
