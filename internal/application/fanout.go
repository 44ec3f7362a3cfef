package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = Notifiers(nil)

// Notifiers delivers every notice to each notifier in order.
type Notifiers []driven.Notifier

// Notify delivers notice to every notifier. A panicking notifier is logged
// and skipped.
func (ns Notifiers) Notify(ctx context.Context, notice model.Notice) {
	for _, n := range ns {
		notifyOne(ctx, n, notice)
	}
}

func notifyOne(ctx context.Context, n driven.Notifier, notice model.Notice) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("notifier panicked", "panic", v, "severity", notice.Severity)
		}
	}()
	n.Notify(ctx, notice)
}
