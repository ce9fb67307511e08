package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/mileusna/crontab"
	"github.com/redis/go-redis/v9"
	"wetalk/internal/config"
	"wetalk/internal/metrics"
	"wetalk/internal/service"
	"wetalk/pkg/logger"
)

const (
	SweepLockName   = "wetalk:presence:sweep"
	SweepJobTimeout = 30 * time.Second
)

// Crontab runs the presence sweep on a cron schedule. With Redis available
// only one process per tick performs the sweep.
type Crontab struct {
	ctab     *crontab.Crontab
	presence service.PresenceService
	rs       *redsync.Redsync
	cfg      config.PresenceConfig
	log      logger.Logger
}

func NewCrontab(presence service.PresenceService, client *redis.Client, cfg config.PresenceConfig, log logger.Logger) *Crontab {
	c := &Crontab{
		ctab:     crontab.New(),
		presence: presence,
		cfg:      cfg,
		log:      log.With("component", "scheduler"),
	}
	if client != nil {
		c.rs = redsync.New(goredis.NewPool(client))
	}
	return c
}

// Run blocks until ctx is cancelled.
func (c *Crontab) Run(ctx context.Context) error {
	err := c.ctab.AddJob(c.cfg.SweepSchedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), SweepJobTimeout)
		defer cancel()
		c.SweepOnce(jobCtx)
	})
	if err != nil {
		c.ctab.Shutdown()
		return fmt.Errorf("failed to add presence sweep job: %w", err)
	}
	c.log.Info("Presence sweep scheduled", "schedule", c.cfg.SweepSchedule, "staleness", c.cfg.Staleness.String())

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

// SweepOnce performs one sweep if this process wins the tick. It reports
// whether the sweep ran.
func (c *Crontab) SweepOnce(ctx context.Context) (bool, error) {
	if c.rs != nil {
		mutex := c.rs.NewMutex(SweepLockName,
			redsync.WithExpiry(c.cfg.SweepLockTTL),
			redsync.WithTries(1),
		)
		if err := mutex.TryLockContext(ctx); err != nil {
			c.log.Debug("Presence sweep skipped, lock held elsewhere", "error", err)
			metrics.SweepRuns.WithLabelValues("skipped").Inc()
			return false, nil
		}
		// Замок не снимается: он истекает сам, и повторный тик на другом
		// инстансе в пределах TTL ничего не делает.
	}

	removed, err := c.presence.Sweep(ctx, c.cfg.Staleness)
	if err != nil {
		c.log.Error("Presence sweep failed", "error", err)
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return true, err
	}

	metrics.SweepRuns.WithLabelValues("ok").Inc()
	c.log.Debug("Presence sweep finished", "removed", removed)
	return true, nil
}
