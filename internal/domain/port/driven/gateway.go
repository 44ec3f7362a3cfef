package driven

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

// NotificationGateway defines the driven port for the GitHub notifications and
// pull request endpoints of a single repository. Implementations keep
// per-resource conditional-request state, so a "not modified" answer is
// returned as the last successful value rather than an error.
type NotificationGateway interface {
	// FetchNotifications returns the repository's notification threads and the
	// server's poll-interval hint.
	FetchNotifications(ctx context.Context) (model.NotificationBatch, error)

	// FetchPullRequest returns the pull request's current state. A "not
	// modified" answer for a number with no cached value is a
	// ErrorKindStateCorruption error.
	FetchPullRequest(ctx context.Context, number int) (model.PullRequestRef, error)

	// MarkThreadRead acknowledges a notification thread.
	MarkThreadRead(ctx context.Context, threadID string) error
}

// AccessValidator checks that the configured credential can read the
// repository's notifications and pull requests.
type AccessValidator interface {
	ValidateAccess(ctx context.Context) error
}

// ErrorKind classifies a gateway failure.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindAuth
	ErrorKindForbidden
	ErrorKindRateLimitPrimary
	ErrorKindRateLimitSecondary
	ErrorKindNotFound
	ErrorKindClient
	ErrorKindServer
	ErrorKindTransport
	ErrorKindDecode
	ErrorKindStateCorruption
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindAuth:
		return "auth"
	case ErrorKindForbidden:
		return "forbidden"
	case ErrorKindRateLimitPrimary:
		return "rate_limit_primary"
	case ErrorKindRateLimitSecondary:
		return "rate_limit_secondary"
	case ErrorKindNotFound:
		return "not_found"
	case ErrorKindClient:
		return "client"
	case ErrorKindServer:
		return "server"
	case ErrorKindTransport:
		return "transport"
	case ErrorKindDecode:
		return "decode"
	case ErrorKindStateCorruption:
		return "state_corruption"
	default:
		return "unknown"
	}
}

// GatewayError is the typed failure returned by NotificationGateway
// implementations. ResetAt is set for primary rate limits; RetryAfter is set
// for secondary rate limits when HasRetryAfter is true.
type GatewayError struct {
	Kind          ErrorKind
	Op            string
	StatusCode    int
	Message       string
	ResetAt       time.Time
	RetryAfter    time.Duration
	HasRetryAfter bool
	Err           error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// AsGatewayError extracts a *GatewayError from err's chain.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}
