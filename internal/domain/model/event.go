package model

import "time"

// ReviewRequested is published when a new open pull request awaits the
// user's review. PullRequestURL is the API URL of the thread subject.
type ReviewRequested struct {
	ID             string
	ThreadID       string
	Number         int
	PullRequestURL string
	HTMLURL        string
	Author         string
	RequestedAt    time.Time
}
