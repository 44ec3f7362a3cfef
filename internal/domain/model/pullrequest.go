package model

// PullRequestRef is the subset of pull request state needed to reconcile
// review-request notifications.
type PullRequestRef struct {
	Number  int
	State   PRState
	Author  string
	HTMLURL string
}

// IsClosed reports whether the pull request is no longer awaiting review.
func (p PullRequestRef) IsClosed() bool {
	return p.State == PRStateClosed
}
