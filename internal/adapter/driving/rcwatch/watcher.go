// Package rcwatch re-validates the configuration whenever the rc file
// changes, so a corrected token takes effect without a restart.
package rcwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ericfisherdev/gitnotify/internal/application"
)

// DefaultDebounce absorbs the burst of events editors produce for one save.
const DefaultDebounce = 250 * time.Millisecond

// Checker validates the configuration and builds a gateway.
type Checker interface {
	Check(ctx context.Context) (application.CheckResult, error)
}

// Starter restarts the poll loop. Starting a running loop is a no-op.
type Starter interface {
	Start(ctx context.Context)
}

// Watcher watches the rc file's directory and reconfigures the poller after
// each change to the file.
type Watcher struct {
	path     string
	checker  Checker
	provider *application.GatewayProvider
	loop     Starter
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// New starts watching the directory holding path. Events for other files in
// that directory are ignored.
func New(
	path string,
	checker Checker,
	provider *application.GatewayProvider,
	loop Starter,
	debounce time.Duration,
) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	path = filepath.Clean(path)
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		path:     path,
		checker:  checker,
		provider: provider,
		loop:     loop,
		debounce: debounce,
		fsw:      fsw,
	}, nil
}

// Run handles file events until ctx is canceled. The underlying watcher is
// closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	slog.Info("watching rc file", "path", w.path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			slog.Debug("rc file changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.Reload(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("reconfiguration after rc file change failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				slog.Warn("rc file watcher overflowed, reloading")
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
				continue
			}
			slog.Error("rc file watcher error", "error", err)
		}
	}
}

// Reload re-runs the configuration check and, on success, swaps the gateway
// and starts the poll loop if it is not running.
func (w *Watcher) Reload(ctx context.Context) error {
	result, err := w.checker.Check(ctx)
	if err != nil {
		return err
	}

	w.provider.Replace(result.Gateway, result.Repository)
	w.loop.Start(ctx)

	slog.Info("poller reconfigured", "repo", result.Repository.FullName())
	return nil
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
