package github

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit/github_primary_ratelimit"
	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// classify converts a go-github error into a *driven.GatewayError.
func classify(op string, resp *gh.Response, err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &driven.GatewayError{
			Kind:       driven.ErrorKindRateLimitPrimary,
			Op:         op,
			StatusCode: statusOf(rateErr.Response),
			Message:    rateErr.Message,
			ResetAt:    rateErr.Rate.Reset.Time,
			Err:        err,
		}
	}

	// The primary limiter answers locally until the reset time passes.
	var reachedErr *github_primary_ratelimit.RateLimitReachedError
	if errors.As(err, &reachedErr) {
		gwErr := &driven.GatewayError{
			Kind:       driven.ErrorKindRateLimitPrimary,
			Op:         op,
			StatusCode: statusOf(reachedErr.Response),
			Message:    "primary rate limit reached",
			Err:        err,
		}
		if reachedErr.ResetTime != nil {
			gwErr.ResetAt = *reachedErr.ResetTime
		}
		return gwErr
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		gwErr := &driven.GatewayError{
			Kind:       driven.ErrorKindRateLimitSecondary,
			Op:         op,
			StatusCode: statusOf(abuseErr.Response),
			Message:    abuseErr.Message,
			Err:        err,
		}
		if abuseErr.RetryAfter != nil {
			gwErr.RetryAfter = *abuseErr.RetryAfter
			gwErr.HasRetryAfter = true
		}
		return gwErr
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return classifyStatus(op, respErr.Response, respErr.Message, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &driven.GatewayError{Kind: driven.ErrorKindDecode, Op: op, StatusCode: statusOf(httpResponse(resp)), Err: err}
	}

	return &driven.GatewayError{Kind: driven.ErrorKindTransport, Op: op, Err: err}
}

// classifyStatus maps an error status code and rate limit headers to a kind.
// Rate limits are recognized on 403 and 429 from the remaining-quota header,
// a Retry-After header, or a "rate limit" message.
func classifyStatus(op string, r *http.Response, message string, err error) *driven.GatewayError {
	gwErr := &driven.GatewayError{Op: op, StatusCode: r.StatusCode, Message: message, Err: err}

	switch {
	case r.StatusCode == http.StatusUnauthorized:
		gwErr.Kind = driven.ErrorKindAuth
	case r.StatusCode == http.StatusForbidden || r.StatusCode == http.StatusTooManyRequests:
		applyRateLimit(gwErr, r, message)
	case r.StatusCode == http.StatusNotFound:
		gwErr.Kind = driven.ErrorKindNotFound
	case r.StatusCode >= 500:
		gwErr.Kind = driven.ErrorKindServer
	case r.StatusCode >= 400:
		gwErr.Kind = driven.ErrorKindClient
	default:
		gwErr.Kind = driven.ErrorKindUnknown
	}

	return gwErr
}

func applyRateLimit(gwErr *driven.GatewayError, r *http.Response, message string) {
	retryAfter, hasRetryAfter := parseRetryAfter(r.Header.Get("Retry-After"))
	resetAt, hasReset := parseReset(r.Header.Get("X-RateLimit-Reset"))
	exhausted := r.Header.Get("X-RateLimit-Remaining") == "0"
	mentionsLimit := strings.Contains(strings.ToLower(message), "rate limit")

	switch {
	case hasRetryAfter:
		gwErr.Kind = driven.ErrorKindRateLimitSecondary
		gwErr.RetryAfter = retryAfter
		gwErr.HasRetryAfter = true
	case exhausted && hasReset:
		gwErr.Kind = driven.ErrorKindRateLimitPrimary
		gwErr.ResetAt = resetAt
	case mentionsLimit || r.StatusCode == http.StatusTooManyRequests:
		gwErr.Kind = driven.ErrorKindRateLimitSecondary
	default:
		gwErr.Kind = driven.ErrorKindForbidden
	}
}

func parseRetryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func parseReset(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(epoch, 0), true
}

func httpResponse(resp *gh.Response) *http.Response {
	if resp == nil {
		return nil
	}
	return resp.Response
}

func statusOf(r *http.Response) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}
