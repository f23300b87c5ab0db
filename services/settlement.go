package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"game-economy-service/models"
	"game-economy-service/monitoring"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// ReceiptArchiver stores settlement receipts out of band (see utils.R2Archive).
type ReceiptArchiver interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Settler finishes expired tournaments exactly once, pays prizes and notifies players.
type Settler struct {
	DB           *gorm.DB
	ledger       *Ledger
	notifier     Notifier
	archive      ReceiptArchiver
	clock        clockwork.Clock
	batchSize    int
	defaultSplit []int64
	log          *zap.Logger
	printer      *message.Printer
}

type SettlerOption func(*Settler)

// WithArchive uploads a JSON receipt after every payout.
func WithArchive(a ReceiptArchiver) SettlerOption {
	return func(s *Settler) { s.archive = a }
}

func NewSettler(db *gorm.DB, ledger *Ledger, notifier Notifier, clock clockwork.Clock, batchSize int, defaultSplit []int64, logger *zap.Logger, opts ...SettlerOption) *Settler {
	if batchSize <= 0 {
		batchSize = 50
	}
	s := &Settler{
		DB:           db,
		ledger:       ledger,
		notifier:     notifier,
		clock:        clock,
		batchSize:    batchSize,
		defaultSplit: defaultSplit,
		log:          logger.Named("settlement"),
		printer:      message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SettleReport summarises one tick.
type SettleReport struct {
	Candidates int
	Settled    int
	Lost       int
	Failed     int
}

// Standing is a participant's final placement.
type Standing struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
	Prize  int64  `json:"prize"`
}

type settlementReceipt struct {
	TournamentID string     `json:"tournament_id"`
	WindowKey    string     `json:"window_key"`
	PrizePool    int64      `json:"prize_pool"`
	PrizeSplit   []int64    `json:"prize_split"`
	Distributed  int64      `json:"distributed"`
	SettledAt    time.Time  `json:"settled_at"`
	Standings    []Standing `json:"standings"`
}

// RankParticipants orders by score descending; earlier joins win ties.
func RankParticipants(ps []models.TournamentParticipant) []models.TournamentParticipant {
	ranked := make([]models.TournamentParticipant, len(ps))
	copy(ranked, ps)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})
	return ranked
}

// ComputePrizes floors each place's share independently; the remainder stays with the house.
func ComputePrizes(pool int64, split []int64) []int64 {
	prizes := make([]int64, len(split))
	if pool <= 0 {
		return prizes
	}
	for i, pct := range split {
		prizes[i] = pool * pct / 100
	}
	return prizes
}

// RunOnce settles up to batchSize expired ACTIVE tournaments and promotes due PLANNED ones.
func (s *Settler) RunOnce(ctx context.Context) (SettleReport, error) {
	var report SettleReport

	if _, err := s.PromoteDue(ctx); err != nil {
		s.log.Error("promote planned tournaments", zap.Error(err))
	}

	now := s.clock.Now().UTC()
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Tournament{}).
		Where("status = ? AND ends_at <= ?", models.TournamentActive, now).
		Order("ends_at ASC").
		Limit(s.batchSize).
		Pluck("id", &ids).Error
	if err != nil {
		return report, fmt.Errorf("find expired tournaments: %w", err)
	}
	report.Candidates = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		settled, err := s.Settle(ctx, id)
		switch {
		case err != nil:
			report.Failed++
			s.log.Error("settlement failed", zap.String("tournament_id", id), zap.Error(err))
		case settled:
			report.Settled++
		default:
			report.Lost++
		}
	}
	return report, nil
}

// PromoteDue activates every PLANNED tournament whose start has passed.
func (s *Settler) PromoteDue(ctx context.Context) (int64, error) {
	now := s.clock.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.Tournament{}).
		Where("status = ? AND starts_at <= ?", models.TournamentPlanned, now).
		Update("status", models.TournamentActive)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Info("tournaments activated", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// claim is the single conditional write that makes settlement exactly-once
// across scheduler instances.
func (s *Settler) claim(ctx context.Context, id string, now time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Tournament{}).
		Where("id = ? AND status = ? AND ends_at <= ?", id, models.TournamentActive, now).
		Updates(map[string]interface{}{
			"status":      models.TournamentFinished,
			"finished_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim tournament %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Settle claims one tournament and, if the claim is won, pays and notifies.
// It returns false with no error when another worker owns the tournament.
func (s *Settler) Settle(ctx context.Context, id string) (bool, error) {
	now := s.clock.Now().UTC()

	won, err := s.claim(ctx, id, now)
	if err != nil {
		return false, err
	}
	if !won {
		monitoring.SettlementClaims.WithLabelValues("lost").Inc()
		s.log.Debug("claim lost", zap.String("tournament_id", id))
		return false, nil
	}
	monitoring.SettlementClaims.WithLabelValues("won").Inc()

	var t models.Tournament
	if err := s.DB.WithContext(ctx).Preload("Participants").First(&t, "id = ?", id).Error; err != nil {
		return true, fmt.Errorf("reload claimed tournament %s: %w", id, err)
	}

	split := t.Rules.Data().PrizeSplit
	if len(split) == 0 {
		split = s.defaultSplit
	}

	standings, err := s.payout(ctx, &t, split, now)
	if err != nil {
		// The claim is terminal; the reconciliation worker reports it.
		s.log.Error("payout failed after claim, tournament needs reconciliation",
			zap.String("tournament_id", t.ID), zap.Error(err))
		return true, err
	}

	var distributed int64
	for _, st := range standings {
		distributed += st.Prize
	}
	monitoring.PrizesPaid.Add(float64(distributed))
	s.log.Info("tournament settled",
		zap.String("tournament_id", t.ID),
		zap.String("window", t.WindowKey),
		zap.Int("participants", len(standings)),
		zap.Int64("prize_pool", t.PrizePool),
		zap.Int64("distributed", distributed))

	title := t.Rules.Data().Title
	for _, st := range standings {
		notify(ctx, s.notifier, s.log, st.UserID, s.resultMessage(title, st, len(standings)))
	}

	s.archiveReceipt(ctx, settlementReceipt{
		TournamentID: t.ID,
		WindowKey:    t.WindowKey,
		PrizePool:    t.PrizePool,
		PrizeSplit:   split,
		Distributed:  distributed,
		SettledAt:    now,
		Standings:    standings,
	})
	return true, nil
}

func (s *Settler) payout(ctx context.Context, t *models.Tournament, split []int64, now time.Time) ([]Standing, error) {
	ranked := RankParticipants(t.Participants)
	prizes := ComputePrizes(t.PrizePool, split)
	standings := make([]Standing, len(ranked))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, p := range ranked {
			var prize int64
			if i < len(prizes) {
				prize = prizes[i]
			}
			if prize > 0 {
				err := s.ledger.Credit(tx, p.UserID, models.CurrencyCoins, prize, models.ReasonTournamentPrize, t.ID)
				if errors.Is(err, ErrUserBlocked) {
					s.log.Warn("prize withheld from blocked user",
						zap.String("tournament_id", t.ID), zap.String("user_id", p.UserID), zap.Int64("prize", prize))
					prize = 0
				} else if err != nil {
					return err
				}
			}
			standings[i] = Standing{Rank: i + 1, UserID: p.UserID, Score: p.Score, Prize: prize}

			err := tx.Model(&models.TournamentParticipant{}).
				Where("id = ?", p.ID).
				Updates(map[string]interface{}{"final_rank": i + 1, "prize": prize}).Error
			if err != nil {
				return fmt.Errorf("record standing for %s: %w", p.UserID, err)
			}
		}

		res := tx.Model(&models.Tournament{}).
			Where("id = ? AND paid_out_at IS NULL", t.ID).
			Update("paid_out_at", now)
		if res.Error != nil {
			return fmt.Errorf("mark paid out: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("tournament %s already paid out", t.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.PaidOutAt = &now
	return standings, nil
}

func (s *Settler) resultMessage(title string, st Standing, total int) string {
	if st.Prize > 0 {
		return s.printer.Sprintf("🏆 %s is over!\nYou placed #%d of %d with %d points and won %d coins.",
			title, st.Rank, total, st.Score, st.Prize)
	}
	return s.printer.Sprintf("🏁 %s is over!\nYou placed #%d of %d with %d points. Prize: %d coins.",
		title, st.Rank, total, st.Score, st.Prize)
}

func (s *Settler) archiveReceipt(ctx context.Context, r settlementReceipt) {
	if s.archive == nil {
		return
	}
	body, err := json.Marshal(r)
	if err != nil {
		s.log.Warn("encode settlement receipt", zap.Error(err))
		return
	}
	key := fmt.Sprintf("settlements/%s/%s.json", r.SettledAt.Format("2006-01-02"), r.TournamentID)
	if err := s.archive.Put(ctx, key, body); err != nil {
		s.log.Warn("archive settlement receipt", zap.String("key", key), zap.Error(err))
	}
}
