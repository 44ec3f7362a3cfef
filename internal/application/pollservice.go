// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Sentinel errors returned by PollService.
var (
	// ErrAlreadyRunning is returned by Run when a loop is already active.
	ErrAlreadyRunning = errors.New("poll loop already running")

	// ErrNotRunning is returned by Refresh when no loop is active.
	ErrNotRunning = errors.New("poll loop not running")

	// ErrNoGateway is returned by Run when no gateway is configured.
	ErrNoGateway = errors.New("github gateway not configured")
)

// refreshRequest represents a manual refresh trigger.
type refreshRequest struct {
	done chan error
}

// Status is a snapshot of the poll loop for observers.
type Status struct {
	Running    bool
	Repository string
	Tracked    []TrackedReview
	RetryCount int
	BaseDelay  time.Duration
	LastDelay  time.Duration
	LastPollAt time.Time
	NextPollAt time.Time
	LastError  string
}

// PollService drives the Reconciler in a single cooperative loop. The loop
// suspends only between cycles; a canceled context is observed before each
// cycle and at the wait.
type PollService struct {
	provider   *GatewayProvider
	reconciler *Reconciler
	notifier   driven.Notifier
	clock      Clock
	baseDelay  time.Duration
	refreshCh  chan refreshRequest

	mu        sync.Mutex
	running   bool
	runDone   chan struct{}
	lastState *PollState
	status    Status
}

// NewPollService creates a new PollService with all required dependencies.
func NewPollService(
	provider *GatewayProvider,
	reconciler *Reconciler,
	notifier driven.Notifier,
	clock Clock,
	baseDelay time.Duration,
) *PollService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &PollService{
		provider:   provider,
		reconciler: reconciler,
		notifier:   notifier,
		clock:      clock,
		baseDelay:  baseDelay,
		refreshCh:  make(chan refreshRequest),
	}
}

// Start runs the loop in a new goroutine. It is a no-op if a loop is already
// running, which lets reconfiguration restart a stopped loop safely.
func (s *PollService) Start(ctx context.Context) {
	go func() {
		err := s.Run(ctx)
		switch {
		case err == nil, errors.Is(err, ErrAlreadyRunning):
		default:
			slog.Error("poll loop terminated", "error", err)
		}
	}()
}

// Run executes cycles until ctx is canceled or a cycle fails fatally. It
// returns nil on cancellation. Tracked reviews survive a restart of the loop
// within the same process; the retry count does not.
func (s *PollService) Run(ctx context.Context) error {
	state, ok := s.begin()
	if !ok {
		return ErrAlreadyRunning
	}
	defer s.end()

	slog.Info("poll service started", "repo", s.provider.Repository().FullName(), "tracked", len(state.Tracked))

	var pending *refreshRequest
	for {
		if ctx.Err() != nil {
			slog.Info("poll service stopped")
			return nil
		}

		gw := s.provider.Get()
		if gw == nil {
			s.notifyNotConfigured(ctx)
			s.reply(pending, ErrNoGateway)
			s.recordError(ErrNoGateway)
			return ErrNoGateway
		}

		delay, next, err := s.reconciler.PollOnce(ctx, gw, state)
		state = next
		s.record(state, delay, err)
		s.reply(pending, err)
		pending = nil

		if err != nil {
			if ctx.Err() != nil {
				slog.Info("poll service stopped")
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			slog.Info("poll service stopped")
			return nil
		case <-s.clock.After(delay):
		case req := <-s.refreshCh:
			slog.Info("manual refresh requested")
			pending = &req
		}
	}
}

// Refresh ends the current wait early and blocks until the triggered cycle
// completes or ctx is canceled.
func (s *PollService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	running, runDone := s.running, s.runDone
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	done := make(chan error, 1)
	select {
	case s.refreshCh <- refreshRequest{done: done}:
	case <-runDone:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the loop.
func (s *PollService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status
	st.Running = s.running
	st.Repository = s.provider.Repository().FullName()
	st.Tracked = append([]TrackedReview(nil), s.status.Tracked...)
	return st
}

// IsRunning reports whether a loop is active.
func (s *PollService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *PollService) begin() (PollState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return PollState{}, false
	}
	s.running = true
	s.runDone = make(chan struct{})

	state := NewPollState(s.clock.Now(), s.baseDelay)
	if s.lastState != nil {
		state.Tracked = s.lastState.clone().Tracked
	}
	s.status.LastError = ""
	return state, true
}

func (s *PollService) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	close(s.runDone)
}

func (s *PollService) record(state PollState, delay time.Duration, err error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := state.clone()
	s.lastState = &snapshot

	s.status.Tracked = state.TrackedReviews()
	s.status.RetryCount = state.RetryCount
	s.status.BaseDelay = state.BaseDelay
	s.status.LastDelay = delay
	s.status.LastPollAt = now
	s.status.NextPollAt = now.Add(delay)
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
		s.status.NextPollAt = time.Time{}
	}
}

func (s *PollService) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastError = err.Error()
	s.status.NextPollAt = time.Time{}
}

func (s *PollService) reply(req *refreshRequest, err error) {
	if req != nil {
		req.done <- err
	}
}

// notifyNotConfigured raises the error notice for a missing gateway.
func (s *PollService) notifyNotConfigured(ctx context.Context) {
	s.notifier.Notify(ctx, model.NewNotice(model.SeverityError,
		"GitHub is not configured. Set GITHUB_TOKEN in ~/.gitnotifyrc and validate again.").
		WithAction(model.ActionValidateAgain).AsSticky())
}
