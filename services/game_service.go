package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"game-economy-service/config"
	"game-economy-service/models"
	"game-economy-service/monitoring"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameService starts rounds and validates, scores and rewards finished ones.
type GameService struct {
	DB        *gorm.DB
	ledger    *Ledger
	referrals *ReferralService
	clock     clockwork.Clock
	antiCheat config.AntiCheatConfig
	reward    config.RewardConfig
	log       *zap.Logger
}

func NewGameService(db *gorm.DB, ledger *Ledger, referrals *ReferralService, clock clockwork.Clock, antiCheat config.AntiCheatConfig, reward config.RewardConfig, logger *zap.Logger) *GameService {
	return &GameService{
		DB:        db,
		ledger:    ledger,
		referrals: referrals,
		clock:     clock,
		antiCheat: antiCheat,
		reward:    reward,
		log:       logger.Named("game"),
	}
}

// FinishInput is the client's report. Values arrive as JSON numbers and are
// checked before any of them is trusted.
type FinishInput struct {
	ClientScore float64 `json:"client_score"`
	Clicks      float64 `json:"clicks"`
	EpicCount   float64 `json:"epic_count"`
}

type RoundResult struct {
	RoundID          string `json:"round_id"`
	ServerScore      int64  `json:"server_score"`
	StarsEarned      int64  `json:"stars_earned"`
	XPEarned         int64  `json:"xp_earned"`
	Level            int    `json:"level"`
	XP               int64  `json:"xp"`
	LevelsGained     int    `json:"levels_gained"`
	ReferralRewarded bool   `json:"referral_rewarded"`
}

func (s *GameService) loadActiveUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Select("id", "is_blocked").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user.IsBlocked {
		return nil, newError(KindForbiddenBlocked, "user %s is blocked", userID)
	}
	return &user, nil
}

// StartRound opens a round stamped with the server clock.
func (s *GameService) StartRound(ctx context.Context, userID string) (*models.GameRound, error) {
	if _, err := s.loadActiveUser(ctx, userID); err != nil {
		return nil, err
	}
	round := models.GameRound{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&round).Error; err != nil {
		return nil, fmt.Errorf("create round: %w", err)
	}
	return &round, nil
}

func countValue(name string, v float64, integral bool) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, newError(KindInvalidPayload, "%s must be a finite non-negative number", name)
	}
	if v > math.MaxInt32 {
		return 0, newError(KindInvalidPayload, "%s is out of range", name)
	}
	if integral && v != math.Trunc(v) {
		return 0, newError(KindInvalidPayload, "%s must be a whole number", name)
	}
	return int64(v), nil
}

// FinishRound validates a round and credits its reward. Round finalization and
// the user's stars, XP and level change commit together.
func (s *GameService) FinishRound(ctx context.Context, userID, roundID string, in FinishInput) (*RoundResult, error) {
	if _, err := s.loadActiveUser(ctx, userID); err != nil {
		return nil, err
	}

	clientScore, err := countValue("client_score", in.ClientScore, false)
	if err != nil {
		return nil, err
	}
	clicks, err := countValue("clicks", in.Clicks, true)
	if err != nil {
		return nil, err
	}
	epic, err := countValue("epic_count", in.EpicCount, true)
	if err != nil {
		return nil, err
	}

	var round models.GameRound
	err = s.DB.WithContext(ctx).First(&round, "id = ?", roundID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "round %s not found", roundID)
	}
	if err != nil {
		return nil, fmt.Errorf("load round %s: %w", roundID, err)
	}
	if round.UserID != userID {
		return nil, newError(KindUnauthorized, "round %s belongs to another user", roundID)
	}
	if round.FinishedAt != nil {
		return nil, newError(KindAlreadyFinished, "round %s already finished", roundID)
	}

	now := s.clock.Now().UTC()
	duration := now.Sub(round.CreatedAt)
	rule, err := CheckRound(s.antiCheat, duration, clicks, epic)
	if err != nil {
		return nil, err
	}
	if rule != "" {
		if err := s.block(ctx, userID, rule, now); err != nil {
			return nil, err
		}
		s.log.Warn("cheat detected",
			zap.String("user_id", userID),
			zap.String("round_id", roundID),
			zap.String("rule", string(rule)),
			zap.Duration("duration", duration),
			zap.Int64("clicks", clicks),
			zap.Int64("epic_count", epic))
		return nil, newError(KindCheatDetected, "round rejected: %s", rule)
	}

	score := ServerScore(s.reward, clicks, epic)
	stars := StarsReward(s.reward, score)
	xp := XPGain(s.reward, score)
	result := &RoundResult{RoundID: roundID, ServerScore: score, StarsEarned: stars, XPEarned: xp}

	// first is decided under the user lock, so concurrent finishes of a new
	// player's rounds agree on which one was first.
	var first bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "level", "xp", "is_blocked").
			First(&user, "id = ?", userID).Error
		if err != nil {
			return fmt.Errorf("lock user %s: %w", userID, err)
		}
		if user.IsBlocked {
			return newError(KindForbiddenBlocked, "user %s is blocked", userID)
		}

		var finished int64
		err = tx.Model(&models.GameRound{}).
			Where("user_id = ? AND finished_at IS NOT NULL", userID).
			Count(&finished).Error
		if err != nil {
			return fmt.Errorf("count finished rounds: %w", err)
		}

		res := tx.Model(&models.GameRound{}).
			Where("id = ? AND user_id = ? AND finished_at IS NULL", roundID, userID).
			Updates(map[string]interface{}{
				"finished_at":  now,
				"clicks":       clicks,
				"epic_count":   epic,
				"score":        clientScore,
				"server_score": score,
				"stars_earned": stars,
				"xp_earned":    xp,
			})
		if res.Error != nil {
			return fmt.Errorf("finalize round: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return newError(KindAlreadyFinished, "round %s already finished", roundID)
		}
		first = finished == 0

		progress, ups := ApplyXP(s.reward, Progress{Level: user.Level, XP: user.XP}, xp)
		err = tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{"level": progress.Level, "xp": progress.XP}).Error
		if err != nil {
			return fmt.Errorf("update progression: %w", err)
		}
		result.Level, result.XP, result.LevelsGained = progress.Level, progress.XP, ups

		return s.ledger.Credit(tx, userID, models.CurrencyStars, stars, models.ReasonRoundReward, roundID)
	})
	if err != nil {
		return nil, err
	}

	monitoring.RoundsFinished.Inc()
	s.log.Info("round finished",
		zap.String("user_id", userID),
		zap.String("round_id", roundID),
		zap.Int64("server_score", score),
		zap.Int64("stars", stars),
		zap.Int64("xp", xp),
		zap.Int("level", result.Level))

	if first && s.referrals != nil {
		rewarded, err := s.referrals.RewardFirstRound(ctx, userID)
		if err != nil {
			// The round reward is already committed.
			s.log.Error("referral payout failed", zap.String("user_id", userID), zap.Error(err))
		}
		result.ReferralRewarded = rewarded
	}
	return result, nil
}

// block sets the permanent anti-cheat flag. Only the first detection writes.
func (s *GameService) block(ctx context.Context, userID string, rule CheatRule, now time.Time) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_blocked = ?", userID, false).
		Updates(map[string]interface{}{
			"is_blocked":     true,
			"blocked_reason": string(rule),
			"blocked_at":     now,
		})
	if res.Error != nil {
		return fmt.Errorf("block user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 1 {
		monitoring.CheatDetections.WithLabelValues(string(rule)).Inc()
	}
	return nil
}
