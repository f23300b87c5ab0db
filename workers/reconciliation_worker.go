// workers/reconciliation_worker.go
package workers

import (
	"context"
	"fmt"
	"time"

	"game-economy-service/models"
	"game-economy-service/monitoring"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnpaidTournament is a FINISHED tournament whose payout never committed.
type UnpaidTournament struct {
	ID         string    `json:"id"`
	WindowKey  string    `json:"window_key"`
	PrizePool  int64     `json:"prize_pool"`
	FinishedAt time.Time `json:"finished_at"`
	Overdue    string    `json:"overdue"`
}

// ReconciliationWorker reports claimed-but-unpaid tournaments. It never pays
// them: the claim is terminal and recovery is an operator decision.
type ReconciliationWorker struct {
	db       *gorm.DB
	clock    clockwork.Clock
	interval time.Duration
	grace    time.Duration
	log      *zap.Logger
}

func NewReconciliationWorker(db *gorm.DB, clock clockwork.Clock, interval, grace time.Duration, logger *zap.Logger) *ReconciliationWorker {
	return &ReconciliationWorker{
		db:       db,
		clock:    clock,
		interval: interval,
		grace:    grace,
		log:      logger.Named("reconciliation"),
	}
}

func (w *ReconciliationWorker) Start(ctx context.Context) {
	w.log.Info("starting reconciliation worker",
		zap.Duration("interval", w.interval), zap.Duration("grace", w.grace))
	go w.run(ctx)
}

func (w *ReconciliationWorker) run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("reconciliation worker stopped")
			return
		case <-ticker.Chan():
			if _, err := w.Scan(ctx); err != nil {
				w.log.Error("reconciliation scan failed", zap.Error(err))
			}
		}
	}
}

// Scan lists overdue unpaid tournaments, logs each and updates the gauge.
func (w *ReconciliationWorker) Scan(ctx context.Context) ([]UnpaidTournament, error) {
	now := w.clock.Now().UTC()
	cutoff := now.Add(-w.grace)

	var ts []models.Tournament
	err := w.db.WithContext(ctx).
		Select("id", "window_key", "prize_pool", "finished_at").
		Where("status = ? AND paid_out_at IS NULL AND finished_at <= ?", models.TournamentFinished, cutoff).
		Order("finished_at ASC").
		Find(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("find unpaid tournaments: %w", err)
	}

	out := make([]UnpaidTournament, 0, len(ts))
	for _, t := range ts {
		if t.FinishedAt == nil {
			continue
		}
		u := UnpaidTournament{
			ID:         t.ID,
			WindowKey:  t.WindowKey,
			PrizePool:  t.PrizePool,
			FinishedAt: *t.FinishedAt,
			Overdue:    now.Sub(*t.FinishedAt).Round(time.Second).String(),
		}
		out = append(out, u)
		w.log.Error("finished tournament has no payout",
			zap.String("tournament_id", u.ID),
			zap.String("window", u.WindowKey),
			zap.Int64("prize_pool", u.PrizePool),
			zap.Time("finished_at", u.FinishedAt))
	}
	monitoring.UnpaidFinishedTournaments.Set(float64(len(out)))
	return out, nil
}
