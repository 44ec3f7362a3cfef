package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ReviewEventStore = (*ReviewEventRepo)(nil)
	_ driven.EventPublisher   = (*ReviewEventRepo)(nil)
)

type reviewEventRow struct {
	ID             string `db:"id"`
	ThreadID       string `db:"thread_id"`
	Number         int    `db:"pr_number"`
	PullRequestURL string `db:"pull_request_url"`
	HTMLURL        string `db:"html_url"`
	Author         string `db:"author"`
	RequestedAt    string `db:"requested_at"`
}

// ReviewEventRepo is the SQLite implementation of the ReviewEventStore port
// interface. Subscribed to the event bus, it keeps a history of surfaced
// review requests.
type ReviewEventRepo struct {
	db *DB
}

// NewReviewEventRepo creates a new ReviewEventRepo backed by the given DB.
func NewReviewEventRepo(db *DB) *ReviewEventRepo {
	return &ReviewEventRepo{db: db}
}

// Record stores event, assigning an id when missing.
func (r *ReviewEventRepo) Record(ctx context.Context, event model.ReviewRequested) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO review_events (id, thread_id, pr_number, pull_request_url, html_url, author, requested_at)
		VALUES (:id, :thread_id, :pr_number, :pull_request_url, :html_url, :author, :requested_at)`

	_, err := r.db.Writer.NamedExecContext(ctx, query, reviewEventRow{
		ID:             event.ID,
		ThreadID:       event.ThreadID,
		Number:         event.Number,
		PullRequestURL: event.PullRequestURL,
		HTMLURL:        event.HTMLURL,
		Author:         event.Author,
		RequestedAt:    formatTime(event.RequestedAt),
	})
	if err != nil {
		return fmt.Errorf("record review event for thread %s: %w", event.ThreadID, err)
	}
	return nil
}

// Publish records event and logs a failure instead of returning it.
func (r *ReviewEventRepo) Publish(ctx context.Context, event model.ReviewRequested) {
	if err := r.Record(ctx, event); err != nil {
		slog.Error("failed to record review event", "thread", event.ThreadID, "pr", event.Number, "error", err)
	}
}

// ListRecent returns up to limit events, newest first.
func (r *ReviewEventRepo) ListRecent(ctx context.Context, limit int) ([]model.ReviewRequested, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	const query = `
		SELECT id, thread_id, pr_number, pull_request_url, html_url, author, requested_at
		FROM review_events
		ORDER BY requested_at DESC, rowid DESC
		LIMIT ?`

	var rows []reviewEventRow
	if err := r.db.Reader.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list review events: %w", err)
	}

	result := make([]model.ReviewRequested, 0, len(rows))
	for _, row := range rows {
		requestedAt, err := parseTime(row.RequestedAt)
		if err != nil {
			return nil, fmt.Errorf("parse requested_at for event %s: %w", row.ID, err)
		}
		result = append(result, model.ReviewRequested{
			ID:             row.ID,
			ThreadID:       row.ThreadID,
			Number:         row.Number,
			PullRequestURL: row.PullRequestURL,
			HTMLURL:        row.HTMLURL,
			Author:         row.Author,
			RequestedAt:    requestedAt,
		})
	}
	return result, nil
}
