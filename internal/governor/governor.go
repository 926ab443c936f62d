// Package governor runs upstream fetches concurrently with a time budget per
// task. A task that fails or runs out of time is logged and reported, but it
// never cancels or blocks its siblings.
package governor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"uocsclub.net/cpstats/internal/logger"
	"uocsclub.net/cpstats/internal/types"
)

// Await runs fn under its own timeout and stops waiting once the budget is
// spent, even if fn ignores its context. The abandoned call keeps running in
// the background until its request is cancelled.
func Await[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s: %w", types.ErrTimeout, timeout, r.err)
		}
		return r.value, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", types.ErrTimeout, timeout)
		}
		return zero, ctx.Err()
	}
}

// Group joins a set of independent tasks.
type Group struct {
	ctx    context.Context
	logger *slog.Logger
	scope  string

	eg   errgroup.Group
	mu   sync.Mutex
	errs *multierror.Error
}

func NewGroup(ctx context.Context, log *slog.Logger, scope string) *Group {
	if log == nil {
		log = logger.Discard()
	}
	return &Group{
		ctx:    ctx,
		logger: log,
		scope:  scope,
	}
}

// Future holds the outcome of a spawned task. Read it only after the
// group's Wait has returned.
type Future[T any] struct {
	value T
	err   error
}

func (f *Future[T]) Result() (T, error) {
	return f.value, f.err
}

// Spawn starts fn in g with its own timeout. The result is stored by the
// joined goroutine, so a task abandoned on timeout can never write it late.
func Spawn[T any](g *Group, task string, timeout time.Duration, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{}
	g.eg.Go(func() error {
		start := time.Now()
		f.value, f.err = Await(g.ctx, timeout, fn)
		g.record(task, start, f.err)
		return nil
	})
	return f
}

// Go starts fn with its own timeout. Errors are recorded, not propagated to
// the other tasks. fn's context is cancelled once the task is abandoned, so
// side effects should check ctx.Err() before publishing.
func (g *Group) Go(task string, timeout time.Duration, fn func(ctx context.Context) error) {
	Spawn(g, task, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

func (g *Group) record(task string, start time.Time, err error) {
	elapsed := time.Since(start).Round(time.Millisecond)
	if err == nil {
		g.logger.Debug("fan-out task done",
			"scope", g.scope,
			"task", task,
			"elapsed", elapsed,
		)
		return
	}

	g.logger.Warn("fan-out task failed",
		"scope", g.scope,
		"task", task,
		"elapsed", elapsed,
		"error", err,
	)
	g.mu.Lock()
	g.errs = multierror.Append(g.errs, fmt.Errorf("%s: %w", task, err))
	g.mu.Unlock()
}

// Wait blocks until every task has returned or timed out. The returned
// error lists every failed task, or is nil.
func (g *Group) Wait() error {
	_ = g.eg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errs.ErrorOrNil()
}
