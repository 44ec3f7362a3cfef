package model

import "fmt"

// PRState represents the lifecycle state of a pull request as reported by GitHub.
// The set is closed: merged pull requests are reported as closed.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

// ParsePRState converts a raw API value into a PRState. Any value outside the
// closed set is rejected.
func ParsePRState(raw string) (PRState, error) {
	switch PRState(raw) {
	case PRStateOpen, PRStateClosed:
		return PRState(raw), nil
	default:
		return "", fmt.Errorf("unknown pull request state %q", raw)
	}
}

// Severity classifies a user-facing notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// NotificationReason is the server-assigned classification of a notification thread.
type NotificationReason string

// ReasonReviewRequested is the only reason that triggers action.
const ReasonReviewRequested NotificationReason = "review_requested"
