package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

// --- Mock implementations ---

type mockGateway struct {
	mu sync.Mutex

	fetchNotifications func(ctx context.Context) (model.NotificationBatch, error)
	fetchPullRequest   func(ctx context.Context, number int) (model.PullRequestRef, error)
	markThreadRead     func(ctx context.Context, threadID string) error
	validateAccess     func(ctx context.Context) error

	notificationCalls int
	pullRequestCalls  []int
	markedRead        []string
}

func (m *mockGateway) FetchNotifications(ctx context.Context) (model.NotificationBatch, error) {
	m.mu.Lock()
	m.notificationCalls++
	m.mu.Unlock()

	if m.fetchNotifications == nil {
		return model.NotificationBatch{}, nil
	}
	return m.fetchNotifications(ctx)
}

func (m *mockGateway) FetchPullRequest(ctx context.Context, number int) (model.PullRequestRef, error) {
	m.mu.Lock()
	m.pullRequestCalls = append(m.pullRequestCalls, number)
	m.mu.Unlock()

	if m.fetchPullRequest == nil {
		return model.PullRequestRef{}, fmt.Errorf("unexpected fetch of #%d", number)
	}
	return m.fetchPullRequest(ctx, number)
}

func (m *mockGateway) MarkThreadRead(ctx context.Context, threadID string) error {
	if m.markThreadRead != nil {
		if err := m.markThreadRead(ctx, threadID); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.markedRead = append(m.markedRead, threadID)
	m.mu.Unlock()
	return nil
}

func (m *mockGateway) ValidateAccess(ctx context.Context) error {
	if m.validateAccess == nil {
		return nil
	}
	return m.validateAccess(ctx)
}

func (m *mockGateway) notificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationCalls
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []model.Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice model.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) all() []model.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Notice(nil), n.notices...)
}

func (n *recordingNotifier) bySeverity(severity model.Severity) []model.Notice {
	var out []model.Notice
	for _, notice := range n.all() {
		if notice.Severity == severity {
			out = append(out, notice)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ReviewRequested
}

func (p *recordingPublisher) Publish(_ context.Context, event model.ReviewRequested) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) all() []model.ReviewRequested {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ReviewRequested(nil), p.events...)
}

// fakeClock returns a fixed time and records every requested wait. When
// fire is true, waits complete immediately; otherwise they never complete.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
	fire  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)

	ch := make(chan time.Time, 1)
	if c.fire {
		ch <- c.now.Add(d)
	}
	return ch
}

func (c *fakeClock) recordedWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// --- Fixtures ---

func reviewThread(id string, number int) model.NotificationThread {
	return model.NotificationThread{
		ID:          id,
		Reason:      model.ReasonReviewRequested,
		SubjectURL:  fmt.Sprintf("https://api.github.com/repos/octo/hello/pulls/%d", number),
		SubjectType: "PullRequest",
		Unread:      true,
	}
}

func staticBatch(hint time.Duration, threads ...model.NotificationThread) func(context.Context) (model.NotificationBatch, error) {
	return func(context.Context) (model.NotificationBatch, error) {
		return model.NotificationBatch{Threads: threads, PollInterval: hint}, nil
	}
}

func openPR(number int, author string) model.PullRequestRef {
	return model.PullRequestRef{
		Number:  number,
		State:   model.PRStateOpen,
		Author:  author,
		HTMLURL: fmt.Sprintf("https://github.com/octo/hello/pull/%d", number),
	}
}

func closedPR(number int) model.PullRequestRef {
	return model.PullRequestRef{Number: number, State: model.PRStateClosed, Author: "alice"}
}
