// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// StartSettlementScheduler runs Settler.RunOnce every interval until ctx is done.
// Ticks never overlap within one process; other replicas are fenced by the claim.
func StartSettlementScheduler(ctx context.Context, settler *Settler, clock clockwork.Clock, interval time.Duration, logger *zap.Logger) (gocron.Scheduler, error) {
	log := logger.Named("scheduler")

	sched, err := gocron.NewScheduler(gocron.WithClock(clock), gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			report, err := settler.RunOnce(ctx)
			if err != nil {
				log.Error("settlement tick failed", zap.Error(err))
				return
			}
			if report.Candidates > 0 {
				log.Info("settlement tick",
					zap.Int("candidates", report.Candidates),
					zap.Int("settled", report.Settled),
					zap.Int("lost", report.Lost),
					zap.Int("failed", report.Failed))
			}
		}),
		gocron.WithName("tournament-settlement"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	log.Info("settlement scheduler started", zap.Duration("interval", interval))

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", zap.Error(err))
		}
	}()
	return sched, nil
}
