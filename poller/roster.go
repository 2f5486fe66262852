package poller

import (
	"context"
	"dispatcher/capacity"
	"dispatcher/remote"

	"github.com/facebookgo/clock"
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const DefaultRosterSchedule = "@every 30s"

// RosterRefresher replaces the worker roster from the order service on a cron schedule.
type RosterRefresher struct {
	remote   remote.OrderService
	tracker  *capacity.Tracker
	clock    clock.Clock
	schedule string
	crontab  *cron.Cron
}

func NewRosterRefresher(svc remote.OrderService, tracker *capacity.Tracker, c clock.Clock, schedule string) *RosterRefresher {
	if c == nil {
		c = clock.New()
	}
	if schedule == "" {
		schedule = DefaultRosterSchedule
	}
	return &RosterRefresher{remote: svc, tracker: tracker, clock: c, schedule: schedule}
}

func (r *RosterRefresher) Refresh(ctx context.Context) error {
	readStartedAt := r.clock.Now()
	workers, err := r.remote.GetWorkers(ctx)
	if err != nil {
		return err
	}
	r.tracker.ReplaceRoster(workers, readStartedAt)
	logrus.Debugf("worker roster refreshed, %d workers", len(workers))
	return nil
}

// Start loads the roster once and then keeps refreshing it. A failed first load is not fatal.
func (r *RosterRefresher) Start(ctx context.Context) error {
	crontab := cron.New(cron.WithSeconds())
	if _, err := crontab.AddFunc(r.schedule, func() {
		if err := r.Refresh(ctx); err != nil {
			logrus.Warnf("roster refresh failed: %v", err)
		}
	}); err != nil {
		return err
	}

	if err := r.Refresh(ctx); err != nil {
		logrus.Warnf("initial roster load failed: %v", err)
	}
	crontab.Start()
	r.crontab = crontab
	return nil
}

func (r *RosterRefresher) Stop() {
	if r.crontab != nil {
		<-r.crontab.Stop().Done()
	}
}
