package loop

import (
	"context"
	"fmt"
	"time"
)

// Next tells Start what to do after a task run.
type Next struct {
	err      error
	quit     bool
	interval time.Duration
}

func (n Next) String() string {
	switch {
	case n.err != nil:
		return fmt.Sprintf("[break] with error: %v", n.err)
	case n.quit:
		return "[break] without error"
	default:
		return fmt.Sprintf("[continue] after %s", n.interval)
	}
}

// Interval to wait before the next run. It is 0 for Break.
func (n Next) Interval() time.Duration {
	return n.interval
}

// Continue the loop after waiting interval.
func Continue(interval time.Duration) Next {
	if interval < 0 {
		interval = 0
	}
	return Next{interval: interval}
}

// Break the loop. err is returned from Start as is (nil is fine).
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task receives the value returned by its last run (or init, for the first run).
//
// The zero Next means Continue(0).
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task repeatedly until it breaks or ctx is done.
//
// Start returns the last value the task returned, together with the error passed to Break.
// When ctx is done before the first run or while waiting for the next run,
// Start returns ctx.Err() and the last value.
//
// Example: count up to 10.
//
//	Start(ctx, 1, func(_ context.Context, value int) (int, Next) {
//		value += 1
//		if 10 <= value {
//			return value, Break(nil)
//		}
//		return value, Continue(0)
//	})
func Start[T any](ctx context.Context, init T, task Task[T], options ...Option) (T, error) {
	if err := ctx.Err(); err != nil {
		return init, err
	}

	value := init
	for {
		v, next := runOnce(ctx, value, task, options)
		if next.err != nil {
			return v, next.err
		}
		if next.quit {
			return v, nil
		}
		value = v

		if err := Sleep(ctx, next.interval); err != nil {
			return value, err
		}
	}
}

func runOnce[T any](ctx context.Context, value T, task Task[T], options []Option) (T, Next) {
	c := &config{ctx: ctx}
	for _, opt := range options {
		c = opt(c)
	}
	if c.cleanup != nil {
		defer c.cleanup()
	}
	return task(c.ctx, value)
}

// Sleep waits d, or returns ctx.Err() when ctx is done first.
//
// Cancellation takes priority over an expired timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		if err := ctx.Err(); err != nil {
			return err
		}
		return nil
	}
}

type config struct {
	ctx     context.Context
	cleanup func()
}

type Option func(*config) *config

// WithTimeout sets deadline on the context passed to each task run.
func WithTimeout(d time.Duration) Option {
	return func(c *config) *config {
		ctx, cancel := context.WithTimeout(c.ctx, d)
		prev := c.cleanup
		return &config{
			ctx: ctx,
			cleanup: func() {
				cancel()
				if prev != nil {
					prev()
				}
			},
		}
	}
}
