package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NotificationThread is a server-side notification record grouping events
// about one resource.
type NotificationThread struct {
	ID          string
	Reason      NotificationReason
	SubjectURL  string
	SubjectType string
	Title       string
	Unread      bool
	UpdatedAt   time.Time
}

// IsReviewRequest reports whether the thread was generated by a review request.
func (t NotificationThread) IsReviewRequest() bool {
	return t.Reason == ReasonReviewRequested
}

// PullRequestNumber derives the pull request number from the last path
// segment of the subject URL.
func (t NotificationThread) PullRequestNumber() (int, error) {
	trimmed := strings.TrimRight(t.SubjectURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return 0, fmt.Errorf("subject url %q has no number segment", t.SubjectURL)
	}

	n, err := strconv.Atoi(trimmed[idx+1:])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("subject url %q has no number segment", t.SubjectURL)
	}

	return n, nil
}

// NotificationBatch is the result of one notifications fetch. PollInterval is
// zero when the server sent no X-Poll-Interval hint.
type NotificationBatch struct {
	Threads      []NotificationThread
	PollInterval time.Duration
}
