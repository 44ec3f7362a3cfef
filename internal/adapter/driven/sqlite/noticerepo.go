package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.NoticeStore = (*NoticeRepo)(nil)
	_ driven.Notifier    = (*NoticeRepo)(nil)
)

// DefaultListLimit caps list queries when the caller passes a non-positive limit.
const DefaultListLimit = 50

// noticeRow mirrors the notices table.
type noticeRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Body        string         `db:"body"`
	Severity    string         `db:"severity"`
	Action      string         `db:"action"`
	Sticky      int            `db:"sticky"`
	CreatedAt   string         `db:"created_at"`
	DismissedAt sql.NullString `db:"dismissed_at"`
}

func (r noticeRow) toModel() (model.Notice, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return model.Notice{}, fmt.Errorf("parse created_at for notice %s: %w", r.ID, err)
	}

	n := model.Notice{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		Severity:  model.Severity(r.Severity),
		Action:    r.Action,
		Sticky:    r.Sticky != 0,
		CreatedAt: createdAt,
	}

	if r.DismissedAt.Valid {
		dismissedAt, err := parseTime(r.DismissedAt.String)
		if err != nil {
			return model.Notice{}, fmt.Errorf("parse dismissed_at for notice %s: %w", r.ID, err)
		}
		n.DismissedAt = &dismissedAt
	}

	return n, nil
}

// NoticeRepo is the SQLite implementation of the NoticeStore port interface.
// It also serves as a Notifier so every notice lands in the inbox.
type NoticeRepo struct {
	db  *DB
	now func() time.Time
}

// NewNoticeRepo creates a new NoticeRepo backed by the given DB.
func NewNoticeRepo(db *DB) *NoticeRepo {
	return &NoticeRepo{db: db, now: time.Now}
}

// Add stores n, assigning an id and creation time when missing, and returns
// the stored notice.
func (r *NoticeRepo) Add(ctx context.Context, n model.Notice) (model.Notice, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	n.CreatedAt = n.CreatedAt.UTC()

	var dismissedAt sql.NullString
	if n.DismissedAt != nil {
		dismissedAt = sql.NullString{String: formatTime(*n.DismissedAt), Valid: true}
	}

	const query = `
		INSERT INTO notices (id, title, body, severity, action, sticky, created_at, dismissed_at)
		VALUES (:id, :title, :body, :severity, :action, :sticky, :created_at, :dismissed_at)`

	_, err := r.db.Writer.NamedExecContext(ctx, query, noticeRow{
		ID:          n.ID,
		Title:       n.Title,
		Body:        n.Body,
		Severity:    string(n.Severity),
		Action:      n.Action,
		Sticky:      boolToInt(n.Sticky),
		CreatedAt:   formatTime(n.CreatedAt),
		DismissedAt: dismissedAt,
	})
	if err != nil {
		return model.Notice{}, fmt.Errorf("insert notice: %w", err)
	}
	return n, nil
}

// Notify stores the notice and logs a failure instead of returning it.
func (r *NoticeRepo) Notify(ctx context.Context, n model.Notice) {
	if _, err := r.Add(ctx, n); err != nil {
		slog.Error("failed to store notice", "severity", n.Severity, "error", err)
	}
}

// ListRecent returns up to limit notices, newest first. Dismissed notices are
// included only when includeDismissed is true.
func (r *NoticeRepo) ListRecent(ctx context.Context, limit int, includeDismissed bool) ([]model.Notice, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, title, body, severity, action, sticky, created_at, dismissed_at FROM notices`
	if !includeDismissed {
		query += ` WHERE dismissed_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`

	var rows []noticeRow
	if err := r.db.Reader.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}

	result := make([]model.Notice, 0, len(rows))
	for _, row := range rows {
		n, err := row.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}

// Dismiss marks a notice as dismissed. Dismissing twice keeps the first
// timestamp. Returns ErrNoticeNotFound if the id is unknown.
func (r *NoticeRepo) Dismiss(ctx context.Context, id string) error {
	const query = `UPDATE notices SET dismissed_at = COALESCE(dismissed_at, ?) WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("dismiss notice %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dismiss notice %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("dismiss notice %s: %w", id, driven.ErrNoticeNotFound)
	}
	return nil
}
