// Package augment provides optional remote explanation of queries and
// errors via a text-generation service. The service is strictly an
// enhancement: callers must treat any failure as "not available" and
// fall back to the rule-based output.
package augment

import (
	"context"
	"errors"

	"github.com/seeql-labs/seeql/internal/translate"
)

// ErrNotConfigured is returned by Noop, signalling that no remote
// service is set up. Callers fall back silently.
var ErrNotConfigured = errors.New("augment: no remote service configured")

// Augmenter generates natural-language explanations remotely.
type Augmenter interface {
	// ExplainQuery returns step-by-step sentences for a SQL query.
	ExplainQuery(ctx context.Context, sql string) ([]string, error)

	// ExplainError returns a structured explanation for raw engine
	// error text.
	ExplainError(ctx context.Context, rawErr string) (*translate.Explanation, error)
}

// Noop is the default Augmenter when no remote service is configured.
type Noop struct{}

// ExplainQuery always returns ErrNotConfigured.
func (Noop) ExplainQuery(context.Context, string) ([]string, error) {
	return nil, ErrNotConfigured
}

// ExplainError always returns ErrNotConfigured.
func (Noop) ExplainError(context.Context, string) (*translate.Explanation, error) {
	return nil, ErrNotConfigured
}

var _ Augmenter = Noop{}
