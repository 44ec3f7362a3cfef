package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// ErrPollingStopped wraps the error that made a cycle fatal.
var ErrPollingStopped = errors.New("polling stopped")

// PollSettings configures the reconciliation cadence and retry policy.
type PollSettings struct {
	BaseDelay             time.Duration
	ReferencePollInterval time.Duration
	CleanupInterval       time.Duration
	Backoff               BackoffPolicy
}

// DefaultPollSettings returns the stock cadence: 3s base delay against a 60s
// reference hint, hourly sweep, and the default backoff policy.
func DefaultPollSettings() PollSettings {
	return PollSettings{
		BaseDelay:             DefaultBaseDelay,
		ReferencePollInterval: DefaultReferencePollInterval,
		CleanupInterval:       DefaultCleanupInterval,
		Backoff:               DefaultBackoffPolicy(),
	}
}

// Reconciler runs one reconciliation cycle at a time: it turns a notification
// batch into notices, events, mark-as-read calls and tracked-mapping updates.
type Reconciler struct {
	notifier driven.Notifier
	events   driven.EventPublisher
	settings PollSettings
	clock    Clock
}

// NewReconciler creates a Reconciler with all required dependencies.
func NewReconciler(notifier driven.Notifier, events driven.EventPublisher, settings PollSettings, clock Clock) *Reconciler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Reconciler{
		notifier: notifier,
		events:   events,
		settings: settings,
		clock:    clock,
	}
}

// PollOnce executes one cycle against gw and returns the delay before the
// next cycle together with the updated state. The input state is not mutated.
//
// Recoverable failures return a nil error and a backoff delay. Fatal failures
// raise an error notice and return an error wrapping ErrPollingStopped. A
// canceled context returns ctx.Err() without a notice. Mapping changes made
// before a failure are kept in the returned state.
func (r *Reconciler) PollOnce(ctx context.Context, gw driven.NotificationGateway, state PollState) (time.Duration, PollState, error) {
	next := state.clone()

	err := r.reconcile(ctx, gw, &next)
	if err == nil {
		next.RetryCount = 0
		return next.BaseDelay, next, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, next, ctxErr
	}

	decision := r.settings.Backoff.decideRetry(err, next.RetryCount, r.clock.Now())
	next.RetryCount = decision.retryCount
	r.notifier.Notify(ctx, decision.notice)

	if decision.fatal {
		slog.Error("poll cycle failed, stopping", "retry_count", next.RetryCount, "error", err)
		return 0, next, fmt.Errorf("%w: %w", ErrPollingStopped, err)
	}

	slog.Warn("poll cycle failed, backing off",
		"delay", decision.delay,
		"retry_count", next.RetryCount,
		"error", err,
	)
	return decision.delay, next, nil
}

func (r *Reconciler) reconcile(ctx context.Context, gw driven.NotificationGateway, s *PollState) error {
	batch, err := gw.FetchNotifications(ctx)
	if err != nil {
		return err
	}

	if batch.PollInterval > 0 {
		s.BaseDelay = rescaleDelay(batch.PollInterval, r.settings.BaseDelay, r.settings.ReferencePollInterval)
	}

	listed := make(map[string]struct{}, len(batch.Threads))
	var surfaced, skipped int

	for _, thread := range batch.Threads {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !thread.IsReviewRequest() {
			continue
		}
		listed[thread.ID] = struct{}{}

		notified, err := r.reconcileThread(ctx, gw, thread, s)
		if err != nil {
			return err
		}
		if notified {
			surfaced++
		} else {
			skipped++
		}
	}

	s.pruneAcknowledged(listed)

	now := r.clock.Now()
	if now.Sub(s.LastCleanup) > r.settings.CleanupInterval {
		if err := r.sweep(ctx, gw, s); err != nil {
			return err
		}
		s.LastCleanup = now
	}

	slog.Debug("poll cycle complete",
		"threads", len(batch.Threads),
		"surfaced", surfaced,
		"skipped", skipped,
		"tracked", len(s.Tracked),
		"next_delay", s.BaseDelay,
	)

	return nil
}

// reconcileThread handles one review-request thread and reports whether it
// was surfaced to the user.
func (r *Reconciler) reconcileThread(ctx context.Context, gw driven.NotificationGateway, thread model.NotificationThread, s *PollState) (bool, error) {
	if number, ok := s.Tracked[thread.ID]; ok {
		return false, r.recheckTracked(ctx, gw, thread.ID, number, s)
	}
	if _, ok := s.Acknowledged[thread.ID]; ok {
		return false, nil
	}

	number, err := thread.PullRequestNumber()
	if err != nil {
		slog.Warn("skipping thread with unusable subject", "thread", thread.ID, "error", err)
		return false, nil
	}

	pr, err := gw.FetchPullRequest(ctx, number)
	if err != nil {
		return false, err
	}

	if pr.IsClosed() {
		r.markRead(ctx, gw, thread.ID, s)
		return false, nil
	}

	r.notifier.Notify(ctx, reviewNotice(pr))
	r.events.Publish(ctx, model.ReviewRequested{
		ID:             uuid.NewString(),
		ThreadID:       thread.ID,
		Number:         number,
		PullRequestURL: thread.SubjectURL,
		HTMLURL:        pr.HTMLURL,
		Author:         pr.Author,
		RequestedAt:    r.clock.Now().UTC(),
	})
	s.Tracked[thread.ID] = number

	slog.Info("review requested", "thread", thread.ID, "pr", number, "author", pr.Author)

	return true, nil
}

// recheckTracked re-fetches a tracked thread's pull request and evicts the
// thread once the pull request is closed. An open one is left alone.
func (r *Reconciler) recheckTracked(ctx context.Context, gw driven.NotificationGateway, threadID string, number int, s *PollState) error {
	pr, err := gw.FetchPullRequest(ctx, number)
	if err != nil {
		return err
	}
	if !pr.IsClosed() {
		return nil
	}

	delete(s.Tracked, threadID)
	r.markRead(ctx, gw, threadID, s)
	slog.Info("tracked review closed", "thread", threadID, "pr", number)

	return nil
}

// sweep re-fetches every tracked pull request and evicts the closed ones.
func (r *Reconciler) sweep(ctx context.Context, gw driven.NotificationGateway, s *PollState) error {
	ids := make([]string, 0, len(s.Tracked))
	for id := range s.Tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var evicted int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		number := s.Tracked[id]
		pr, err := gw.FetchPullRequest(ctx, number)
		if err != nil {
			return err
		}

		if pr.IsClosed() {
			delete(s.Tracked, id)
			r.markRead(ctx, gw, id, s)
			evicted++
		}
	}

	slog.Info("tracked reviews swept", "checked", len(ids), "evicted", evicted, "remaining", len(s.Tracked))

	return nil
}

// markRead acknowledges a thread. Failures are logged and retried on a later
// cycle because the thread is not recorded as acknowledged.
func (r *Reconciler) markRead(ctx context.Context, gw driven.NotificationGateway, threadID string, s *PollState) {
	if err := gw.MarkThreadRead(ctx, threadID); err != nil {
		slog.Warn("mark thread read failed", "thread", threadID, "error", err)
		return
	}
	s.Acknowledged[threadID] = struct{}{}
	slog.Debug("thread marked read", "thread", threadID)
}

func reviewNotice(pr model.PullRequestRef) model.Notice {
	author := "Someone"
	if pr.Author != "" {
		author = strings.ToUpper(pr.Author)
	}
	return model.NewNotice(model.SeverityInfo, fmt.Sprintf("%s has requested you review their PR", author)).
		WithAction(model.ActionReviewed).
		AsSticky()
}
