package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"

	"github.com/robfig/cron/v3"
)

const (
	sweepIdle int32 = iota
	sweepRunning
)

const defaultSweepInterval = 15 * time.Second

// FinalizerSweep periodically closes expired auctions through the shared
// closer. It communicates with the request paths only through the store; the
// compare-and-set there makes the sweep safely re-entrant and repeatable, so
// a cycle abandoned at shutdown just leaves its remainder for the next tick.
type FinalizerSweep struct {
	cron       *cron.Cron
	store      domain.AuctionStore
	closer     *AuctionCloser
	election   domain.LeaderElection // nil means always sweep
	instanceID string
	interval   time.Duration
	state      int32
	now        func() time.Time
	log        logger.Logger
}

func NewFinalizerSweep(
	store domain.AuctionStore,
	closer *AuctionCloser,
	election domain.LeaderElection,
	instanceID string,
	interval time.Duration,
	log logger.Logger,
) *FinalizerSweep {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &FinalizerSweep{
		cron:       cron.New(cron.WithSeconds()),
		store:      store,
		closer:     closer,
		election:   election,
		instanceID: instanceID,
		interval:   interval,
		now:        time.Now,
		log:        log,
	}
}

func (f *FinalizerSweep) Start(ctx context.Context) error {
	f.log.Info("Starting finalizer sweep", "interval", f.interval)

	_, err := f.cron.AddFunc(fmt.Sprintf("@every %s", f.interval), func() {
		f.RunCycle(ctx)
	})
	if err != nil {
		return err
	}

	f.cron.Start()
	return nil
}

// Stop halts scheduling and waits for an in-flight cycle to finish.
func (f *FinalizerSweep) Stop() error {
	f.log.Info("Stopping finalizer sweep")
	<-f.cron.Stop().Done()
	return nil
}

// RunCycle executes one sweep: fetch due auctions, close them, emit events.
// Overlapping invocations are skipped rather than queued; errors are logged
// and retried naturally on the next tick.
func (f *FinalizerSweep) RunCycle(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&f.state, sweepIdle, sweepRunning) {
		f.log.Debug("Sweep cycle already running, skipping tick")
		return
	}
	defer atomic.StoreInt32(&f.state, sweepIdle)

	if ctx.Err() != nil {
		return
	}

	if f.election != nil {
		isLeader, err := f.election.IsLeader(ctx, f.instanceID)
		if err != nil {
			f.log.Error("Leader check failed", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	now := f.now().UTC()
	due, err := f.store.GetDueAuctions(ctx, now)
	if err != nil {
		f.log.Error("Failed to fetch due auctions", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	events := f.closer.CloseAllDue(ctx, due, now)
	f.log.Info("Sweep cycle finished", "due", len(due), "closed", len(events))
}
