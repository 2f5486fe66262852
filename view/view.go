// Package view holds the locally visible order list: the last accepted poll result overlaid by
// optimistic changes that the order service has not echoed back yet.
package view

import (
	"context"
	"dispatcher/domain"
	"dispatcher/timing"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/fundwit/go-commons/types"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const DefaultDeltaTTL = 30 * time.Second

type View struct {
	mu         sync.RWMutex
	generation uint64
	snapshot   map[types.ID]domain.Order
	ids        []types.ID
	pagination domain.Pagination
	stats      domain.OrderStats

	deltas    *cache.Cache
	stopwatch *timing.Stopwatch
}

func NewView(deltaTTL time.Duration, c clock.Clock) *View {
	if deltaTTL <= 0 {
		deltaTTL = DefaultDeltaTTL
	}
	return &View{
		snapshot:  map[types.ID]domain.Order{},
		deltas:    cache.New(deltaTTL, 2*deltaTTL),
		stopwatch: timing.NewStopwatch(c),
	}
}

func (v *View) Generation() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.generation
}

// BeginGeneration invalidates every poll that is still in flight.
func (v *View) BeginGeneration() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	return v.generation
}

// ReplaceSnapshot installs a poll result unless a newer generation has begun since the poll was issued.
// Optimistic changes the result agrees with are dropped.
func (v *View) ReplaceSnapshot(gen uint64, page *domain.OrderPage, stats *domain.OrderStats) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		logrus.WithFields(logrus.Fields{"generation": gen, "current": v.generation}).Debug("stale poll result discarded")
		return false
	}

	snapshot := make(map[types.ID]domain.Order, len(page.Data))
	ids := make([]types.ID, 0, len(page.Data))
	for _, o := range page.Data {
		if _, dup := snapshot[o.ID]; !dup {
			ids = append(ids, o.ID)
		}
		snapshot[o.ID] = o.Clone()
	}
	v.snapshot = snapshot
	v.ids = ids
	v.pagination = page.Pagination
	if stats != nil {
		v.stats = cloneStats(*stats)
	}

	for key, item := range v.deltas.Items() {
		delta := item.Object.(domain.Order)
		if confirmed, found := snapshot[delta.ID]; found && confirmed.SameState(delta) {
			v.deltas.Delete(key)
		}
	}
	return true
}

// ApplyOptimistic overlays a locally changed order and returns a func that puts the previous overlay back.
func (v *View) ApplyOptimistic(order domain.Order) (undo func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := order.ID.String()
	previous, hadPrevious := v.deltas.Get(key)
	v.deltas.SetDefault(key, order.Clone())

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if hadPrevious {
			v.deltas.SetDefault(key, previous)
		} else {
			v.deltas.Delete(key)
		}
	}
}

// Order returns the overlay if present, the confirmed record otherwise.
func (v *View) Order(id types.ID) (domain.Order, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if delta, found := v.deltas.Get(id.String()); found {
		return delta.(domain.Order).Clone(), true
	}
	o, found := v.snapshot[id]
	if !found {
		return domain.Order{}, false
	}
	return o.Clone(), true
}

// Orders keeps the order of the last poll result. Overlays of orders outside of it are not listed.
func (v *View) Orders() []domain.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()
	r := make([]domain.Order, 0, len(v.ids))
	for _, id := range v.ids {
		if delta, found := v.deltas.Get(id.String()); found {
			r = append(r, delta.(domain.Order).Clone())
			continue
		}
		r = append(r, v.snapshot[id].Clone())
	}
	return r
}

func (v *View) Pagination() domain.Pagination {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pagination
}

func (v *View) Stats() domain.OrderStats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneStats(v.stats)
}

// PendingCount is the number of unconfirmed overlays.
func (v *View) PendingCount() int {
	return v.deltas.ItemCount()
}

func (v *View) Elapsed(id types.ID) (int64, bool) {
	o, found := v.Order(id)
	if !found {
		return 0, false
	}
	return v.stopwatch.Elapsed(o.StartedAt, o.CompletedAt), true
}

// WatchElapsed ticks the processing time of an order until it is delivered or leaves the view.
func (v *View) WatchElapsed(ctx context.Context, id types.ID) <-chan int64 {
	return v.stopwatch.Watch(ctx, func() (*time.Time, *time.Time, bool) {
		o, found := v.Order(id)
		if !found {
			return nil, nil, false
		}
		return o.StartedAt, o.CompletedAt, true
	})
}

func cloneStats(s domain.OrderStats) domain.OrderStats {
	return domain.OrderStats{StatusCounts: append([]domain.StatusCount{}, s.StatusCounts...)}
}
