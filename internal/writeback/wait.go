package writeback

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// Target is what a wait is about: the file being written back and,
// optionally, a probe that reports whether the change is already visible.
type Target struct {
	Path  string
	Ready func(ctx context.Context) (bool, error)
}

// WaitPolicy decides how long to block between issuing a mutation and
// reading the file back. The store gives no completion signal for
// writeback, so every policy is bounded by a ceiling; reaching it is not an
// error, the assertion that follows decides.
//
// Arm is called before the mutation is issued so that policies observing
// the filesystem cannot miss the write.
type WaitPolicy interface {
	Arm(ctx context.Context, target Target) (Waiter, error)
}

// Waiter blocks until writeback is believed complete.
type Waiter interface {
	Wait(ctx context.Context) error
	Close() error
}

type waiterFunc func(ctx context.Context) error

func (f waiterFunc) Wait(ctx context.Context) error { return f(ctx) }
func (f waiterFunc) Close() error                   { return nil }

// FixedDelay always sleeps for Delay.
type FixedDelay struct {
	Delay time.Duration
}

// Arm implements WaitPolicy.
func (p FixedDelay) Arm(context.Context, Target) (Waiter, error) {
	return waiterFunc(func(ctx context.Context) error {
		return sleep(ctx, p.Delay)
	}), nil
}

// Poll asks the target's Ready probe every Interval until it reports true
// or Ceiling elapses. An Interval of zero polls back to back, which is what
// unit tests with in-memory collaborators want. A probe error ends the wait
// early; the extraction step that follows reports the failure.
type Poll struct {
	Interval time.Duration
	Ceiling  time.Duration
}

// Arm implements WaitPolicy. Targets without a probe fall back to a fixed
// delay of Ceiling.
func (p Poll) Arm(ctx context.Context, target Target) (Waiter, error) {
	if target.Ready == nil {
		return FixedDelay{Delay: p.Ceiling}.Arm(ctx, target)
	}
	return waiterFunc(func(ctx context.Context) error {
		deadline := time.Now().Add(p.Ceiling)
		for {
			ok, err := target.Ready(ctx)
			if err != nil || ok {
				return ctx.Err()
			}
			if !time.Now().Before(deadline) {
				return nil
			}
			if err := sleep(ctx, p.Interval); err != nil {
				return err
			}
		}
	}), nil
}

// FileChange watches the target file's directory and returns once the file
// has been written, created or replaced, plus a Settle delay for writers
// that touch the file more than once. When the target has a Ready probe, a
// change that does not satisfy it is treated as unrelated (an earlier
// writeback landing late) and the wait goes on. It returns at Ceiling if
// nothing matching happens.
type FileChange struct {
	Ceiling time.Duration
	Settle  time.Duration
}

// Arm implements WaitPolicy.
func (p FileChange) Arm(_ context.Context, target Target) (Waiter, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory: writers commonly replace the file by rename,
	// which drops a watch placed on the file itself.
	if err := w.Add(filepath.Dir(target.Path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(target.Path), err)
	}
	return &fileWaiter{
		watcher: w,
		path:    filepath.Clean(target.Path),
		ready:   target.Ready,
		ceiling: p.Ceiling,
		settle:  p.Settle,
	}, nil
}

type fileWaiter struct {
	watcher *fsnotify.Watcher
	path    string
	ready   func(ctx context.Context) (bool, error)
	ceiling time.Duration
	settle  time.Duration
}

func (fw *fileWaiter) Wait(ctx context.Context) error {
	timer := time.NewTimer(fw.ceiling)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := sleep(ctx, fw.settle); err != nil || fw.ready == nil {
				return err
			}
			if ok, err := fw.ready(ctx); err != nil || ok {
				return ctx.Err()
			}
		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			// Overflow and similar errors lose events; keep waiting for the
			// ceiling rather than returning early.
		}
	}
}

func (fw *fileWaiter) Close() error {
	return fw.watcher.Close()
}

// NewWaitPolicy builds the policy named in cfg. The fixed policy is the
// default and sleeps for the whole timeout.
func NewWaitPolicy(cfg types.WaitConfig) (WaitPolicy, error) {
	ceiling := cfg.Timeout
	if ceiling == 0 {
		ceiling = types.DefaultWaitTimeout
	}
	switch cfg.Policy {
	case "", types.WaitFixed:
		return FixedDelay{Delay: ceiling}, nil
	case types.WaitPoll:
		interval := cfg.Interval
		if interval == 0 {
			interval = 250 * time.Millisecond
		}
		return Poll{Interval: interval, Ceiling: ceiling}, nil
	case types.WaitFSNotify:
		return FileChange{Ceiling: ceiling, Settle: cfg.Interval}, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrWaitPolicyUnknown, cfg.Policy)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
