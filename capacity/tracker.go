// Package capacity keeps the per worker count of active orders against its concurrency cap.
package capacity

import (
	"dispatcher/bizerror"
	"dispatcher/domain"
	"sort"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

// DefaultMaxConcurrentOrders applies to workers without a configured cap.
const DefaultMaxConcurrentOrders = 5

func Cap(w domain.Worker) int {
	if w.MaxConcurrentOrders <= 0 {
		return DefaultMaxConcurrentOrders
	}
	return w.MaxConcurrentOrders
}

func CanAssign(w domain.Worker) bool {
	return w.IsActive && w.ActiveOrderCount < Cap(w)
}

// Tracker is the process local worker roster. Reserve is a single compare-and-increment,
// so concurrent dispatchers can never push a worker over its cap.
type Tracker struct {
	mu      sync.Mutex
	workers map[types.ID]*domain.Worker
	// last local mutation per worker, remote reads started before it must not override the count
	touched map[types.ID]time.Time
	clock   clock.Clock
}

func NewTracker(c clock.Clock) *Tracker {
	if c == nil {
		c = clock.New()
	}
	return &Tracker{workers: map[types.ID]*domain.Worker{}, touched: map[types.ID]time.Time{}, clock: c}
}

func (t *Tracker) Worker(id types.ID) (domain.Worker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, found := t.workers[id]
	if !found {
		return domain.Worker{}, false
	}
	return w.Clone(), true
}

func (t *Tracker) Workers() []domain.Worker {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := make([]domain.Worker, 0, len(t.workers))
	for _, w := range t.workers {
		r = append(r, w.Clone())
	}
	sort.Slice(r, func(i, j int) bool { return r[i].ID < r[j].ID })
	return r
}

// Reserve increments the active order count if the worker can take one more order and refreshes lastActive.
// It returns the snapshot before the reservation for rollback and the reserved state.
func (t *Tracker) Reserve(id types.ID) (before domain.Worker, after domain.Worker, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, found := t.workers[id]
	if !found {
		return domain.Worker{}, domain.Worker{}, bizerror.ErrNotFound
	}
	if !CanAssign(*w) {
		return w.Clone(), w.Clone(), bizerror.ErrCapacityExceeded
	}
	before = w.Clone()
	now := t.clock.Now()
	w.ActiveOrderCount++
	w.LastActive = &now
	t.touched[id] = now
	return before, w.Clone(), nil
}

// Release decrements the active order count, floored at zero.
func (t *Tracker) Release(id types.ID) (before domain.Worker, after domain.Worker, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, found := t.workers[id]
	if !found {
		return domain.Worker{}, domain.Worker{}, bizerror.ErrNotFound
	}
	before = w.Clone()
	now := t.clock.Now()
	if w.ActiveOrderCount > 0 {
		w.ActiveOrderCount--
	} else {
		logrus.WithField("workerId", id).Warn("release on worker without active orders")
	}
	w.LastActive = &now
	t.touched[id] = now
	return before, w.Clone(), nil
}

// Restore puts a snapshot taken by Reserve or Release back.
func (t *Tracker) Restore(snapshot domain.Worker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := snapshot.Clone()
	t.workers[snapshot.ID] = &w
	t.touched[snapshot.ID] = t.clock.Now()
}

// Upsert stores the record returned by a successful remote write.
func (t *Tracker) Upsert(worker domain.Worker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := worker.Clone()
	t.workers[worker.ID] = &w
	t.touched[worker.ID] = t.clock.Now()
}

// ReplaceRoster installs a full roster read. Workers mutated locally after readStartedAt keep their local count.
func (t *Tracker) ReplaceRoster(workers []domain.Worker, readStartedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := make(map[types.ID]*domain.Worker, len(workers))
	for _, worker := range workers {
		w := worker.Clone()
		if local, found := t.workers[w.ID]; found && t.touched[w.ID].After(readStartedAt) {
			w.ActiveOrderCount = local.ActiveOrderCount
			w.LastActive = cloneTime(local.LastActive)
		}
		next[w.ID] = &w
	}
	t.workers = next
}

// Reconcile sets a worker's active order count from authoritative per status counts.
// It returns false when the worker is unknown or was mutated locally after readStartedAt.
func (t *Tracker) Reconcile(id types.ID, activeOrders int, readStartedAt time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, found := t.workers[id]
	if !found || t.touched[id].After(readStartedAt) {
		return false
	}
	if w.ActiveOrderCount != activeOrders {
		logrus.WithFields(logrus.Fields{"workerId": id, "local": w.ActiveOrderCount, "remote": activeOrders}).
			Info("active order count reconciled")
		w.ActiveOrderCount = activeOrders
	}
	return true
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
