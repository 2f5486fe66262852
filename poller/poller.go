// Package poller keeps the local view in line with the order service by reading it on a fixed interval.
package poller

import (
	"context"
	"dispatcher/capacity"
	"dispatcher/domain"
	"dispatcher/domain/state"
	"dispatcher/remote"
	"dispatcher/view"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultInterval = 5 * time.Second

// Query selects the orders the view shows. A zero WorkerID lists all orders.
type Query struct {
	WorkerID   types.ID            `json:"workerId,omitempty"`
	Status     *domain.OrderStatus `json:"status,omitempty"`
	Page       int                 `json:"page,omitempty"`
	SearchTerm string              `json:"searchTerm,omitempty"`
}

func (q Query) filter() domain.OrderFilter {
	return domain.OrderFilter{Status: q.Status, Page: q.Page, SearchTerm: q.SearchTerm, AssignedUserID: q.WorkerID}
}

type Poller struct {
	remote   remote.OrderService
	view     *view.View
	tracker  *capacity.Tracker
	clock    clock.Clock
	interval time.Duration

	mu      sync.Mutex
	query   Query
	parent  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewPoller(svc remote.OrderService, v *view.View, tracker *capacity.Tracker, c clock.Clock, interval time.Duration) *Poller {
	if c == nil {
		c = clock.New()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{remote: svc, view: v, tracker: tracker, clock: c, interval: interval}
}

func (p *Poller) Query() Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Start polls right away and then on every interval until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parent = ctx
	p.started = true
	p.restartLocked()
}

// SetQuery drops every poll in flight and restarts the interval with the new query.
func (p *Poller) SetQuery(q Query) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.query = q
	if p.started {
		p.restartLocked()
	} else {
		p.view.BeginGeneration()
	}
}

func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = false
	p.stopLocked()
}

// SyncNow polls once outside of the interval.
func (p *Poller) SyncNow(ctx context.Context) error {
	// SetQuery moves the generation while holding p.mu, so both are read as one pair
	p.mu.Lock()
	q, gen := p.query, p.view.Generation()
	p.mu.Unlock()
	return p.poll(ctx, gen, q)
}

func (p *Poller) restartLocked() {
	p.stopLocked()
	gen := p.view.BeginGeneration()
	ctx, cancel := context.WithCancel(p.parent)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	ticker := p.clock.Ticker(p.interval)
	go p.loop(ctx, done, ticker, gen, p.query)
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}, ticker *clock.Ticker, gen uint64, q Query) {
	defer close(done)
	defer ticker.Stop()

	logger := logrus.WithFields(logrus.Fields{"generation": gen, "workerId": q.WorkerID.String()})
	logger.Debug("poller started")
	for {
		if err := p.poll(ctx, gen, q); err != nil && ctx.Err() == nil {
			logger.Warnf("poll failed: %v", err)
		}
		select {
		case <-ctx.Done():
			logger.Debug("poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// poll reads orders and statistics concurrently and installs them unless the generation moved on meanwhile.
func (p *Poller) poll(ctx context.Context, gen uint64, q Query) error {
	readStartedAt := p.clock.Now()

	var page *domain.OrderPage
	var stats *domain.OrderStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if q.WorkerID != 0 {
			page, err = p.remote.GetAssignedOrders(gctx, q.filter())
		} else {
			page, err = p.remote.GetOrders(gctx, q.filter())
		}
		return err
	})
	if q.WorkerID != 0 {
		g.Go(func() error {
			var err error
			stats, err = p.remote.GetOrderStatsPerAssignedUser(gctx, q.WorkerID)
			return err
		})
	} else {
		stats = &domain.OrderStats{StatusCounts: []domain.StatusCount{}}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	if !p.view.ReplaceSnapshot(gen, page, stats) {
		return nil
	}
	logrus.WithFields(logrus.Fields{"generation": gen, "orders": len(page.Data), "unconfirmed": p.view.PendingCount()}).
		Debug("poll result installed")
	if q.WorkerID != 0 && p.tracker != nil {
		p.tracker.Reconcile(q.WorkerID, ActiveOrders(*stats), readStartedAt)
	}
	return nil
}

// ActiveOrders sums the counts of every status that still occupies the worker.
func ActiveOrders(stats domain.OrderStats) int {
	n := 0
	for _, c := range stats.StatusCounts {
		if c.Status.Valid() && !state.IsTerminal(c.Status) {
			n += c.Count
		}
	}
	return n
}
