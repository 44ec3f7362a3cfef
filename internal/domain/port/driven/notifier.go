package driven

import (
	"context"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

// Notifier displays a notice to the user. Delivery is fire-and-forget;
// implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, notice model.Notice)
}

// EventPublisher delivers review-requested events to zero or more subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event model.ReviewRequested)
}
