package timing_test

import (
	"context"
	"dispatcher/timing"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	. "github.com/onsi/gomega"
)

func TestElapsed(t *testing.T) {
	RegisterTestingT(t)

	start := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("should be zero without startedAt", func(t *testing.T) {
		Expect(timing.Elapsed(nil, nil, start)).To(BeZero())
		end := start.Add(time.Hour)
		Expect(timing.Elapsed(nil, &end, start)).To(BeZero())
	})

	t.Run("should floor to whole seconds", func(t *testing.T) {
		Expect(timing.Elapsed(&start, nil, start.Add(1999*time.Millisecond))).To(Equal(int64(1)))
		Expect(timing.Elapsed(&start, nil, start.Add(90*time.Second))).To(Equal(int64(90)))
	})

	t.Run("should clamp negative spans", func(t *testing.T) {
		Expect(timing.Elapsed(&start, nil, start.Add(-time.Minute))).To(BeZero())
	})

	t.Run("should be monotonic while open and frozen once completed", func(t *testing.T) {
		now := start.Add(10 * time.Second)
		first := timing.Elapsed(&start, nil, now)
		second := timing.Elapsed(&start, nil, now.Add(time.Second))
		Expect(second - first).To(Equal(int64(1)))

		completed := start.Add(42 * time.Second)
		Expect(timing.Elapsed(&start, &completed, now)).To(Equal(int64(42)))
		Expect(timing.Elapsed(&start, &completed, now.Add(time.Hour))).To(Equal(int64(42)))
	})
}

type watchedOrder struct {
	mu          sync.Mutex
	startedAt   *time.Time
	completedAt *time.Time
	gone        bool
}

func (o *watchedOrder) source() (*time.Time, *time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.startedAt, o.completedAt, !o.gone
}

func TestStopwatchWatch(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should tick every second and freeze on completion", func(t *testing.T) {
		mock := clock.NewMock()
		started := mock.Now()
		mock.Add(10 * time.Second)
		order := &watchedOrder{startedAt: &started}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		values := timing.NewStopwatch(mock).Watch(ctx, order.source)

		Eventually(values).Should(Receive(Equal(int64(10))))
		mock.Add(time.Second)
		Eventually(values).Should(Receive(Equal(int64(11))))
		mock.Add(time.Second)
		Eventually(values).Should(Receive(Equal(int64(12))))

		order.mu.Lock()
		completed := mock.Now()
		order.completedAt = &completed
		order.mu.Unlock()

		mock.Add(5 * time.Second)
		Eventually(values).Should(Receive(Equal(int64(12))))
		Eventually(values).Should(BeClosed())
	})

	t.Run("should emit frozen value once for completed orders", func(t *testing.T) {
		started := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)
		completed := started.Add(30 * time.Second)
		order := &watchedOrder{startedAt: &started, completedAt: &completed}

		values := timing.NewStopwatch(clock.NewMock()).Watch(context.Background(), order.source)
		Eventually(values).Should(Receive(Equal(int64(30))))
		Eventually(values).Should(BeClosed())
	})

	t.Run("should stop when the order is gone or context is cancelled", func(t *testing.T) {
		mock := clock.NewMock()
		started := mock.Now()
		order := &watchedOrder{startedAt: &started}

		values := timing.NewStopwatch(mock).Watch(context.Background(), order.source)
		Eventually(values).Should(Receive(Equal(int64(0))))
		order.mu.Lock()
		order.gone = true
		order.mu.Unlock()
		mock.Add(time.Second)
		Eventually(values).Should(BeClosed())

		ctx, cancel := context.WithCancel(context.Background())
		order2 := &watchedOrder{startedAt: &started}
		values = timing.NewStopwatch(mock).Watch(ctx, order2.source)
		Eventually(values).Should(Receive())
		cancel()
		Eventually(values).Should(BeClosed())
	})
}
