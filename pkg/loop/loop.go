// Package loop repeats a task on an interval until it reports completion,
// the context ends, or the attempt budget runs out. Failed runs stretch the
// wait by the decline ratio up to the decline limit.
//
//	l := loop.New(loop.WithInterval(time.Second))
//	err := l.Run(ctx, func(ctx context.Context) (bool, error) {
//		return dial(ctx) == nil, nil
//	})
package loop

import (
	"context"
	"math"
	"time"
)

// Loop executes a task repeatedly.
type Loop struct {
	maxTimes     uint64
	declineRatio float64
	declineLimit time.Duration
	interval     time.Duration
	onError      func(err error, next time.Duration)
}

// Option configures a Loop.
type Option func(*Loop)

func New(options ...Option) *Loop {
	l := &Loop{
		interval:     time.Second,
		maxTimes:     math.MaxUint64,
		declineRatio: 1,
	}
	for _, op := range options {
		op(l)
	}
	return l
}

func sleepCtx(ctx context.Context, d time.Duration) (aborted bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-ctx.Done():
		return true
	}
}

// Run calls f until it returns done=true, ctx is cancelled, or the maximum
// number of runs is reached. It returns the error of the final run.
func (l *Loop) Run(ctx context.Context, f func(ctx context.Context) (bool, error)) error {
	if ctx.Err() != nil {
		return nil
	}

	var (
		err  error
		done bool
		wait = l.interval
	)
	for i := uint64(0); i < l.maxTimes; i++ {
		done, err = f(ctx)
		if done {
			return err
		}
		if i == l.maxTimes-1 {
			break
		}

		if err != nil {
			wait = time.Duration(float64(wait) * l.declineRatio)
			if l.declineLimit > 0 && wait > l.declineLimit {
				wait = l.declineLimit
			}
			if l.onError != nil {
				l.onError(err, wait)
			}
		} else {
			wait = l.interval
		}

		if sleepCtx(ctx, wait) {
			return nil
		}
	}
	return err
}

// WithMaxTimes limits the number of runs. Unlimited by default.
func WithMaxTimes(n uint64) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxTimes = n
		}
	}
}

// WithDeclineRatio multiplies the wait after each failed run. Default 1.
func WithDeclineRatio(n float64) Option {
	return func(l *Loop) {
		if n < 1 {
			return
		}
		l.declineRatio = n
	}
}

// WithDeclineLimit caps the stretched wait.
func WithDeclineLimit(t time.Duration) Option {
	return func(l *Loop) {
		if t < 0 {
			return
		}
		l.declineLimit = t
	}
}

// WithInterval sets the wait between runs. Default 1s.
func WithInterval(t time.Duration) Option {
	return func(l *Loop) {
		if t < time.Millisecond {
			return
		}
		l.interval = t
	}
}

// WithOnError observes failed runs and the wait before the next one.
func WithOnError(fn func(err error, next time.Duration)) Option {
	return func(l *Loop) {
		l.onError = fn
	}
}
