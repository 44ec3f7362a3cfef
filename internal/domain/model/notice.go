package model

import "time"

// NoticeTitle is the title carried by every notice raised by the poller.
const NoticeTitle = "Git-Notify"

// Notice action labels.
const (
	ActionReviewed      = "Reviewed"
	ActionRestart       = "Restart plugin"
	ActionValidateAgain = "Validate again"
)

// Notice is a user-facing message. Sticky notices stay visible until the
// user dismisses them.
type Notice struct {
	ID          string
	Title       string
	Body        string
	Severity    Severity
	Action      string
	Sticky      bool
	CreatedAt   time.Time
	DismissedAt *time.Time
}

// NewNotice builds a notice with the standard title.
func NewNotice(severity Severity, body string) Notice {
	return Notice{
		Title:    NoticeTitle,
		Body:     body,
		Severity: severity,
	}
}

// WithAction returns a copy of n carrying the given action label.
func (n Notice) WithAction(action string) Notice {
	n.Action = action
	return n
}

// AsSticky returns a copy of n that stays visible until dismissed.
func (n Notice) AsSticky() Notice {
	n.Sticky = true
	return n
}
