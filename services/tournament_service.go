package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-economy-service/config"
	"game-economy-service/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TournamentService creates tournament windows on demand and handles join / score
// submission. Settlement lives in Settler.
type TournamentService struct {
	DB     *gorm.DB
	ledger *Ledger
	clock  clockwork.Clock
	cfg    config.TournamentConfig
	log    *zap.Logger
}

func NewTournamentService(db *gorm.DB, ledger *Ledger, clock clockwork.Clock, cfg config.TournamentConfig, logger *zap.Logger) *TournamentService {
	return &TournamentService{
		DB:     db,
		ledger: ledger,
		clock:  clock,
		cfg:    cfg,
		log:    logger.Named("tournament"),
	}
}

type JoinResult struct {
	Joined     bool               `json:"joined"`
	Tournament *models.Tournament `json:"tournament"`
}

type SubmitResult struct {
	Updated bool  `json:"updated"`
	Score   int64 `json:"score"`
}

type LeaderboardRow struct {
	Rank     int       `json:"rank" gorm:"-"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Score    int64     `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// errAlreadyJoined rolls back the join transaction without surfacing an error.
var errAlreadyJoined = errors.New("already joined")

// GetOrCreate returns the live tournament for a window or event slug, creating it
// on first access.
func (s *TournamentService) GetOrCreate(ctx context.Context, windowOrSlug string) (*models.Tournament, error) {
	now := s.clock.Now().UTC()
	w, err := ResolveWindow(s.cfg, windowOrSlug, now)
	if err != nil {
		return nil, err
	}

	t, err := s.findLive(ctx, w, now)
	if err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}

	if !now.Before(w.EndsAt) {
		return nil, newError(KindEventEnded, "%s ended at %s", w.Rules.Title, w.EndsAt.Format(time.RFC3339))
	}

	fresh := models.Tournament{
		ID:           uuid.NewString(),
		WindowKey:    w.Key,
		Kind:         w.Kind,
		Status:       w.StatusAt(now),
		StartsAt:     w.StartsAt,
		JoinDeadline: w.JoinDeadline,
		EndsAt:       w.EndsAt,
		EntryFee:     w.EntryFee,
		PrizePool:    w.PrizePool,
		Rules:        datatypes.NewJSONType(w.Rules),
	}
	if w.Slug != "" {
		fresh.Slug = &w.Slug
	}

	// Concurrent first accesses race on the unique window key; losers re-read.
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "window_key"}}, DoNothing: true}).
		Create(&fresh)
	if res.Error != nil {
		return nil, fmt.Errorf("create tournament %s: %w", w.Key, res.Error)
	}
	if res.RowsAffected == 1 {
		s.log.Info("tournament created",
			zap.String("tournament_id", fresh.ID),
			zap.String("window", w.Key),
			zap.String("status", string(fresh.Status)))
		return &fresh, nil
	}

	var existing models.Tournament
	if err := s.DB.WithContext(ctx).Where("window_key = ?", w.Key).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("reload tournament %s: %w", w.Key, err)
	}
	if existing.Status == models.TournamentFinished || !now.Before(existing.EndsAt) {
		return nil, newError(KindEventEnded, "%s already settled", w.Rules.Title)
	}
	if err := s.promote(ctx, &existing, now); err != nil {
		return nil, err
	}
	return &existing, nil
}

// Find looks up the live tournament for a window or slug without creating one.
func (s *TournamentService) Find(ctx context.Context, windowOrSlug string) (*models.Tournament, error) {
	now := s.clock.Now().UTC()
	w, err := ResolveWindow(s.cfg, windowOrSlug, now)
	if err != nil {
		return nil, err
	}
	t, err := s.findLive(ctx, w, now)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, newError(KindNotFound, "no open tournament for %q", windowOrSlug)
	}
	return t, nil
}

func (s *TournamentService) findLive(ctx context.Context, w Window, now time.Time) (*models.Tournament, error) {
	q := s.DB.WithContext(ctx).Where("status <> ? AND ends_at > ?", models.TournamentFinished, now)
	if w.Kind == models.TournamentEvent {
		q = q.Where("slug = ?", w.Slug)
	} else {
		q = q.Where("window_key = ?", w.Key)
	}

	var t models.Tournament
	err := q.Order("starts_at DESC").First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup tournament %s: %w", w.Key, err)
	}
	if err := s.promote(ctx, &t, now); err != nil {
		return nil, err
	}
	return &t, nil
}

// promote moves a PLANNED tournament to ACTIVE once its start has passed.
// The write is conditional so concurrent readers do not fight over it.
func (s *TournamentService) promote(ctx context.Context, t *models.Tournament, now time.Time) error {
	if t.Status != models.TournamentPlanned || now.Before(t.StartsAt) {
		return nil
	}
	err := s.DB.WithContext(ctx).Model(&models.Tournament{}).
		Where("id = ? AND status = ? AND starts_at <= ?", t.ID, models.TournamentPlanned, now).
		Update("status", models.TournamentActive).Error
	if err != nil {
		return fmt.Errorf("activate tournament %s: %w", t.ID, err)
	}
	t.Status = models.TournamentActive
	return nil
}

// Join charges the entry fee once and registers the participant. A second call
// for the same user returns Joined=false and charges nothing.
func (s *TournamentService) Join(ctx context.Context, userID string, t *models.Tournament) (JoinResult, error) {
	now := s.clock.Now().UTC()
	if !t.IsOpenAt(now) {
		return JoinResult{}, newError(KindNotActive, "tournament %s is not accepting players", t.ID)
	}
	if now.After(t.JoinDeadline) {
		return JoinResult{}, newError(KindJoinDeadlinePassed, "joins closed at %s", t.JoinDeadline.Format(time.RFC3339))
	}

	poolIncrement := int64(0)
	if t.Kind.IsRecurring() {
		poolIncrement = t.EntryFee
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id", "is_blocked").First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(KindNotFound, "user %s not found", userID)
			}
			return fmt.Errorf("load user %s: %w", userID, err)
		}
		if user.IsBlocked {
			return newError(KindUserBlocked, "user %s is blocked", userID)
		}

		// Guard on the tournament row: loses against a settlement claim that
		// committed first, and accrues the pool for recurring windows.
		res := tx.Model(&models.Tournament{}).
			Where("id = ? AND status = ? AND ends_at > ?", t.ID, models.TournamentActive, now).
			UpdateColumn("prize_pool", gorm.Expr("prize_pool + ?", poolIncrement))
		if res.Error != nil {
			return fmt.Errorf("accrue prize pool: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return newError(KindNotActive, "tournament %s closed", t.ID)
		}

		participant := models.TournamentParticipant{
			ID:           uuid.NewString(),
			UserID:       userID,
			TournamentID: t.ID,
			JoinedAt:     now,
		}
		res = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "tournament_id"}},
			DoNothing: true,
		}).Create(&participant)
		if res.Error != nil {
			return fmt.Errorf("insert participant: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errAlreadyJoined
		}

		return s.ledger.Debit(tx, userID, models.CurrencyCoins, t.EntryFee, models.ReasonTournamentEntry, t.ID)
	})
	if errors.Is(err, errAlreadyJoined) {
		return JoinResult{Joined: false, Tournament: t}, nil
	}
	if err != nil {
		return JoinResult{}, err
	}

	t.PrizePool += poolIncrement
	s.log.Info("user joined tournament",
		zap.String("user_id", userID),
		zap.String("tournament_id", t.ID),
		zap.Int64("entry_fee", t.EntryFee),
		zap.Int64("prize_pool", t.PrizePool))
	return JoinResult{Joined: true, Tournament: t}, nil
}

// SubmitScore raises the participant's best score. It never lowers it and never
// errors for state conflicts: a closed tournament, a missing participant or a
// non-improving score all yield Updated=false.
func (s *TournamentService) SubmitScore(ctx context.Context, userID string, t *models.Tournament, score int64) (SubmitResult, error) {
	if score < 0 {
		return SubmitResult{}, newError(KindInvalidPayload, "score must be non-negative")
	}
	now := s.clock.Now().UTC()
	if !t.IsOpenAt(now) {
		return SubmitResult{Updated: false}, nil
	}

	// One conditional write keyed by participant; the stored value converges on
	// the maximum under concurrent submissions.
	res := s.DB.WithContext(ctx).Model(&models.TournamentParticipant{}).
		Where("tournament_id = ? AND user_id = ? AND score < ?", t.ID, userID, score).
		Where("EXISTS (SELECT 1 FROM tournaments WHERE tournaments.id = tournament_participants.tournament_id AND tournaments.status = ? AND tournaments.ends_at > ?)",
			models.TournamentActive, now).
		Where("NOT EXISTS (SELECT 1 FROM users WHERE users.id = tournament_participants.user_id AND users.is_blocked = ?)", true).
		UpdateColumn("score", score)
	if res.Error != nil {
		return SubmitResult{}, fmt.Errorf("submit score: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return SubmitResult{Updated: false}, nil
	}
	return SubmitResult{Updated: true, Score: score}, nil
}

// SubmitWindowScore resolves the live tournament for a window or slug and submits
// to it. A window with no open tournament yields Updated=false like any other
// closed tournament; an unknown slug is still NotFound.
func (s *TournamentService) SubmitWindowScore(ctx context.Context, userID, windowOrSlug string, score int64) (SubmitResult, error) {
	if score < 0 {
		return SubmitResult{}, newError(KindInvalidPayload, "score must be non-negative")
	}
	now := s.clock.Now().UTC()
	w, err := ResolveWindow(s.cfg, windowOrSlug, now)
	if err != nil {
		return SubmitResult{}, err
	}
	t, err := s.findLive(ctx, w, now)
	if err != nil {
		return SubmitResult{}, err
	}
	if t == nil {
		return SubmitResult{Updated: false}, nil
	}
	return s.SubmitScore(ctx, userID, t, score)
}

// Leaderboard returns the display top-N: score descending, earliest join first on ties.
func (s *TournamentService) Leaderboard(ctx context.Context, t *models.Tournament) ([]LeaderboardRow, error) {
	limit := s.cfg.LeaderboardSize
	if limit <= 0 {
		limit = 50
	}

	var rows []LeaderboardRow
	err := s.DB.WithContext(ctx).
		Table("tournament_participants AS p").
		Select("p.user_id, u.username, p.score, p.joined_at").
		Joins("JOIN users u ON u.id = p.user_id").
		Where("p.tournament_id = ? AND p.deleted_at IS NULL", t.ID).
		Order("p.score DESC, p.joined_at ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", t.ID, err)
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// ListOpen lists tournaments that have not ended yet, soonest end first.
func (s *TournamentService) ListOpen(ctx context.Context) ([]models.Tournament, error) {
	now := s.clock.Now().UTC()
	var ts []models.Tournament
	err := s.DB.WithContext(ctx).
		Where("status <> ? AND ends_at > ?", models.TournamentFinished, now).
		Order("ends_at ASC").
		Find(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("list open tournaments: %w", err)
	}
	return ts, nil
}
