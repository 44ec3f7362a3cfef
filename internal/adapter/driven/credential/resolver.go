// Package credential resolves the GitHub access token from the environment,
// the OS keyring and the ~/.gitnotifyrc file.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.TokenSource = (*Resolver)(nil)
	_ driven.TokenSource = Static("")
)

// Static is a token supplied directly through configuration.
type Static string

// Token returns the configured token, or ErrTokenNotFound when it is blank.
func (s Static) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", driven.ErrTokenNotFound
	}
	return token, nil
}

// namedSource pairs a TokenSource with a label for logging.
type namedSource struct {
	name   string
	source driven.TokenSource
}

// Resolver tries each source in order and returns the first token found.
type Resolver struct {
	sources []namedSource
}

// NewResolver creates an empty Resolver. Add sources in priority order.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Add appends a source. Nil sources are ignored.
func (r *Resolver) Add(name string, source driven.TokenSource) *Resolver {
	if source != nil {
		r.sources = append(r.sources, namedSource{name: name, source: source})
	}
	return r
}

// Token returns the first token any source yields. Sources reporting
// ErrTokenNotFound are skipped; any other error stops the search. When no
// source has a token the last not-found error is returned.
func (r *Resolver) Token(ctx context.Context) (string, error) {
	notFound := driven.ErrTokenNotFound
	for _, s := range r.sources {
		token, err := s.source.Token(ctx)
		switch {
		case err == nil:
			slog.Debug("github token resolved", "source", s.name)
			return token, nil
		case errors.Is(err, driven.ErrTokenNotFound):
			notFound = err
		default:
			return "", fmt.Errorf("reading token from %s: %w", s.name, err)
		}
	}
	return "", notFound
}
