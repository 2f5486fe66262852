// Package timing derives the processing duration of an order from its startedAt and completedAt timestamps.
package timing

import (
	"context"
	"time"

	"github.com/facebookgo/clock"
)

// Elapsed returns whole seconds between startedAt and completedAt (or now while the order is open), 0 without a start.
func Elapsed(startedAt, completedAt *time.Time, now time.Time) int64 {
	if startedAt == nil {
		return 0
	}
	end := now
	if completedAt != nil {
		end = *completedAt
	}
	d := end.Sub(*startedAt)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Source reports the current timestamps of the watched order, ok is false once the order is gone.
type Source func() (startedAt, completedAt *time.Time, ok bool)

type Stopwatch struct {
	clock clock.Clock
}

func NewStopwatch(c clock.Clock) *Stopwatch {
	if c == nil {
		c = clock.New()
	}
	return &Stopwatch{clock: c}
}

func (w *Stopwatch) Elapsed(startedAt, completedAt *time.Time) int64 {
	return Elapsed(startedAt, completedAt, w.clock.Now())
}

// Watch emits the elapsed seconds right away and then once per second while the order is open.
// The channel is closed after the frozen value was emitted, when the source is gone or ctx is done.
func (w *Stopwatch) Watch(ctx context.Context, source Source) <-chan int64 {
	out := make(chan int64, 1)

	startedAt, completedAt, ok := source()
	if !ok {
		close(out)
		return out
	}
	if startedAt == nil || completedAt != nil {
		out <- w.Elapsed(startedAt, completedAt)
		close(out)
		return out
	}

	ticker := w.clock.Ticker(time.Second)
	out <- w.Elapsed(startedAt, completedAt)

	go func() {
		defer close(out)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			startedAt, completedAt, ok := source()
			if !ok {
				return
			}
			select {
			case out <- w.Elapsed(startedAt, completedAt):
			case <-ctx.Done():
				return
			}
			if startedAt == nil || completedAt != nil {
				return
			}
		}
	}()
	return out
}
