package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

// ErrNoticeNotFound is returned when dismissing a notice that does not exist.
var ErrNoticeNotFound = errors.New("notice not found")

// NoticeStore defines the driven port for the notice inbox.
type NoticeStore interface {
	Add(ctx context.Context, notice model.Notice) (model.Notice, error)
	ListRecent(ctx context.Context, limit int, includeDismissed bool) ([]model.Notice, error)
	// Dismiss returns ErrNoticeNotFound if no notice has the given id.
	Dismiss(ctx context.Context, id string) error
}

// ReviewEventStore defines the driven port for the review-request history.
type ReviewEventStore interface {
	Record(ctx context.Context, event model.ReviewRequested) error
	ListRecent(ctx context.Context, limit int) ([]model.ReviewRequested, error)
}
