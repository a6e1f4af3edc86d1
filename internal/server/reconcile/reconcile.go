// Package reconcile runs the periodic sweep that repairs store state left
// behind by interrupted requests: assignments pointing at deleted accounts
// and leases whose holder never released them.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/warrantypool/internal/logging"
	"github.com/dmitrijs2005/warrantypool/internal/server/metrics"
	"github.com/dmitrijs2005/warrantypool/internal/server/store"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule = "@every 5m"
	sweepTimeout    = 30 * time.Second
)

// Report counts what one sweep repaired.
type Report struct {
	Orphans int64
	Leases  int64
}

type Reconciler struct {
	store    store.Store
	schedule string
	log      logging.Logger
	now      func() time.Time
}

func New(s store.Store, schedule string, log logging.Logger) *Reconciler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Reconciler{
		store:    s,
		schedule: schedule,
		log:      log.With("component", "reconciler"),
		now:      time.Now,
	}
}

// Sweep deletes orphaned assignments and clears expired leases once.
func (r *Reconciler) Sweep(ctx context.Context) (Report, error) {
	var rep Report
	var err error

	if rep.Orphans, err = r.store.Assignments().DeleteOrphans(ctx); err != nil {
		return rep, fmt.Errorf("delete orphans: %w", err)
	}
	if rep.Leases, err = r.store.Accounts().ClearExpiredLeases(ctx, r.now()); err != nil {
		return rep, fmt.Errorf("clear expired leases: %w", err)
	}

	metrics.RecordReconciled("orphans", rep.Orphans)
	metrics.RecordReconciled("leases", rep.Leases)
	return rep, nil
}

// Run schedules Sweep and blocks until ctx is cancelled. Jobs already
// running are allowed to finish before Run returns.
func (r *Reconciler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(r.schedule, func() {
		sctx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()

		rep, err := r.Sweep(sctx)
		if err != nil {
			r.log.Error(sctx, "reconcile sweep failed", "error", err)
			return
		}
		r.log.Info(sctx, "reconcile sweep done", "orphans", rep.Orphans, "expired_leases", rep.Leases)
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", r.schedule, err)
	}

	r.log.Info(ctx, "reconciler started", "schedule", r.schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	r.log.Info(context.Background(), "reconciler stopped")
	return nil
}
