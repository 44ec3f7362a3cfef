package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/gitnotify/internal/application"
	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StatusResponse is the JSON representation of the poll loop status.
type StatusResponse struct {
	Running     bool                    `json:"running"`
	Repository  string                  `json:"repository"`
	RetryCount  int                     `json:"retry_count"`
	BaseDelayMS int64                   `json:"base_delay_ms"`
	LastDelayMS int64                   `json:"last_delay_ms"`
	LastPollAt  string                  `json:"last_poll_at,omitempty"`
	NextPollAt  string                  `json:"next_poll_at,omitempty"`
	LastError   string                  `json:"last_error,omitempty"`
	Tracked     []TrackedReviewResponse `json:"tracked"`
}

// TrackedReviewResponse is one thread the poller is watching.
type TrackedReviewResponse struct {
	ThreadID string `json:"thread_id"`
	Number   int    `json:"number"`
}

// NoticeResponse is the JSON representation of an inbox notice.
type NoticeResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Severity    string `json:"severity"`
	Action      string `json:"action,omitempty"`
	Sticky      bool   `json:"sticky"`
	CreatedAt   string `json:"created_at"`
	DismissedAt string `json:"dismissed_at,omitempty"`
}

// ReviewEventResponse is the JSON representation of a review request. It is
// used for both the history endpoint and websocket frames.
type ReviewEventResponse struct {
	ID             string `json:"id"`
	ThreadID       string `json:"thread_id"`
	Number         int    `json:"number"`
	PullRequestURL string `json:"pull_request_url"`
	HTMLURL        string `json:"html_url,omitempty"`
	Author         string `json:"author,omitempty"`
	RequestedAt    string `json:"requested_at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toStatusResponse(st application.Status) StatusResponse {
	tracked := make([]TrackedReviewResponse, 0, len(st.Tracked))
	for _, tr := range st.Tracked {
		tracked = append(tracked, TrackedReviewResponse{ThreadID: tr.ThreadID, Number: tr.Number})
	}

	return StatusResponse{
		Running:     st.Running,
		Repository:  st.Repository,
		RetryCount:  st.RetryCount,
		BaseDelayMS: st.BaseDelay.Milliseconds(),
		LastDelayMS: st.LastDelay.Milliseconds(),
		LastPollAt:  formatTime(st.LastPollAt),
		NextPollAt:  formatTime(st.NextPollAt),
		LastError:   st.LastError,
		Tracked:     tracked,
	}
}

func toNoticeResponse(n model.Notice) NoticeResponse {
	resp := NoticeResponse{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Severity:  string(n.Severity),
		Action:    n.Action,
		Sticky:    n.Sticky,
		CreatedAt: formatTime(n.CreatedAt),
	}
	if n.DismissedAt != nil {
		resp.DismissedAt = formatTime(*n.DismissedAt)
	}
	return resp
}

func toReviewEventResponse(e model.ReviewRequested) ReviewEventResponse {
	return ReviewEventResponse{
		ID:             e.ID,
		ThreadID:       e.ThreadID,
		Number:         e.Number,
		PullRequestURL: e.PullRequestURL,
		HTMLURL:        e.HTMLURL,
		Author:         e.Author,
		RequestedAt:    formatTime(e.RequestedAt),
	}
}
