package application

import (
	"fmt"
	"time"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Retry defaults.
const (
	DefaultMaxRetries     = 5
	DefaultBackoffBase    = 60 * time.Second
	DefaultBackoffCeiling = time.Hour
)

// BackoffPolicy bounds the exponential retry schedule.
type BackoffPolicy struct {
	Base       time.Duration
	Ceiling    time.Duration
	MaxRetries int
}

// DefaultBackoffPolicy returns 60s doubling per attempt, capped at one hour,
// with five attempts.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:       DefaultBackoffBase,
		Ceiling:    DefaultBackoffCeiling,
		MaxRetries: DefaultMaxRetries,
	}
}

// exponentialDelay returns min(base * 2^(attempt-1), ceiling).
func (p BackoffPolicy) exponentialDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Ceiling {
			return p.Ceiling
		}
	}
	if delay > p.Ceiling {
		return p.Ceiling
	}
	return delay
}

// retryDecision is the Backoff Controller's verdict on a failed cycle.
type retryDecision struct {
	delay      time.Duration
	retryCount int
	fatal      bool
	notice     model.Notice
}

// decideRetry classifies a failed cycle. retryCount is the count before this
// failure.
func (p BackoffPolicy) decideRetry(err error, retryCount int, now time.Time) retryDecision {
	gwErr, ok := driven.AsGatewayError(err)
	if !ok {
		return fatalDecision(retryCount+1, fmt.Sprintf("Unexpected error: %v", err))
	}

	switch gwErr.Kind {
	case driven.ErrorKindRateLimitPrimary:
		delay := max(gwErr.ResetAt.Sub(now), 0).Round(time.Second)
		return retryDecision{
			delay:      delay,
			retryCount: retryCount,
			notice:     model.NewNotice(model.SeverityInfo, fmt.Sprintf("Primary rate limit exceeded. Will retry in %d seconds", int(delay.Seconds()))),
		}

	case driven.ErrorKindRateLimitSecondary:
		attempt := retryCount + 1
		if gwErr.HasRetryAfter {
			return retryDecision{
				delay:      gwErr.RetryAfter,
				retryCount: attempt,
				notice:     model.NewNotice(model.SeverityInfo, fmt.Sprintf("Secondary rate limit exceeded. Will retry in %d seconds", int(gwErr.RetryAfter.Seconds()))),
			}
		}
		return p.exponential(attempt, "Secondary rate limit exceeded", "Maximum retry attempts reached for secondary rate limit. Please try again later.")

	case driven.ErrorKindServer, driven.ErrorKindTransport:
		return p.exponential(retryCount+1, "GitHub is unavailable", fmt.Sprintf("Maximum retry attempts reached while GitHub was unavailable: %v", gwErr))

	case driven.ErrorKindAuth:
		return fatalDecision(retryCount+1, fmt.Sprintf("GitHub rejected the token: %s", gwErr.Message))

	case driven.ErrorKindNotFound:
		return fatalDecision(retryCount+1, fmt.Sprintf("Repository or pull request not found: %s", gwErr.Op))

	case driven.ErrorKindStateCorruption:
		return fatalDecision(retryCount+1, fmt.Sprintf("Unexpected error: %v", gwErr))

	default:
		return fatalDecision(retryCount+1, fmt.Sprintf("Client error: %v", gwErr))
	}
}

func (p BackoffPolicy) exponential(attempt int, label, exhausted string) retryDecision {
	if attempt > p.MaxRetries {
		return fatalDecision(attempt, exhausted)
	}

	delay := p.exponentialDelay(attempt)
	return retryDecision{
		delay:      delay,
		retryCount: attempt,
		notice: model.NewNotice(model.SeverityInfo,
			fmt.Sprintf("%s. Will retry in %d seconds (attempt %d of %d)", label, int(delay.Seconds()), attempt, p.MaxRetries)),
	}
}

func fatalDecision(retryCount int, body string) retryDecision {
	return retryDecision{
		retryCount: retryCount,
		fatal:      true,
		notice:     model.NewNotice(model.SeverityError, body).WithAction(model.ActionRestart).AsSticky(),
	}
}
