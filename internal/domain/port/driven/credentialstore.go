package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

// ErrTokenNotFound is returned by a TokenSource that holds no token.
var ErrTokenNotFound = errors.New("github token not found")

// ErrNoGitHubRemote is returned by a RemoteLocator when the project has no
// origin remote pointing at github.com.
var ErrNoGitHubRemote = errors.New("no github origin remote")

// TokenSource supplies the GitHub access token.
type TokenSource interface {
	// Token returns ErrTokenNotFound when the source has no token.
	Token(ctx context.Context) (string, error)
}

// RemoteLocator discovers the GitHub repository the project tracks.
type RemoteLocator interface {
	// Origin returns ErrNoGitHubRemote when no suitable remote exists.
	Origin(ctx context.Context) (model.Repository, error)
}
