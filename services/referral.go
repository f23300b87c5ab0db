package services

import (
	"context"
	"fmt"

	"game-economy-service/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferralService struct {
	DB       *gorm.DB
	notifier Notifier
	clock    clockwork.Clock
	tickets  int
	log      *zap.Logger
}

func NewReferralService(db *gorm.DB, notifier Notifier, clock clockwork.Clock, tickets int, logger *zap.Logger) *ReferralService {
	return &ReferralService{
		DB:       db,
		notifier: notifier,
		clock:    clock,
		tickets:  tickets,
		log:      logger.Named("referral"),
	}
}

// Link records that inviterID invited invitedID. A user can be invited once;
// repeats are ignored.
func (s *ReferralService) Link(tx *gorm.DB, inviterID, invitedID string) error {
	if inviterID == "" || inviterID == invitedID {
		return nil
	}
	ref := models.Referral{
		ID:        uuid.NewString(),
		InviterID: inviterID,
		InvitedID: invitedID,
	}
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref).Error
	if err != nil {
		return fmt.Errorf("link referral %s -> %s: %w", inviterID, invitedID, err)
	}
	return nil
}

// RewardFirstRound pays the inviter of invitedID once. The rewarded flag is
// flipped by a conditional write in the same transaction that creates the
// tickets, so concurrent calls grant at most one batch.
func (s *ReferralService) RewardFirstRound(ctx context.Context, invitedID string) (bool, error) {
	now := s.clock.Now().UTC()
	var ref models.Referral

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Referral{}).
			Where("invited_id = ? AND rewarded = ?", invitedID, false).
			Updates(map[string]interface{}{"rewarded": true, "rewarded_at": now})
		if res.Error != nil {
			return fmt.Errorf("mark referral rewarded: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Where("invited_id = ?", invitedID).First(&ref).Error; err != nil {
			return fmt.Errorf("load referral: %w", err)
		}

		tickets := make([]models.Ticket, s.tickets)
		for i := range tickets {
			tickets[i] = models.Ticket{
				ID:        uuid.NewString(),
				UserID:    ref.InviterID,
				Type:      models.TicketReferral,
				CreatedAt: now,
			}
		}
		if len(tickets) > 0 {
			if err := tx.Create(&tickets).Error; err != nil {
				return fmt.Errorf("create referral tickets: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if ref.ID == "" {
		return false, nil
	}

	s.log.Info("referral rewarded",
		zap.String("inviter_id", ref.InviterID),
		zap.String("invited_id", invitedID),
		zap.Int("tickets", s.tickets))
	notify(ctx, s.notifier, s.log, ref.InviterID,
		fmt.Sprintf("🎟 Your friend played their first game! You received %d tickets.", s.tickets))
	return true, nil
}

// UnusedTickets counts tickets not yet consumed.
func (s *ReferralService) UnusedTickets(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Ticket{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Count(&n).Error
	return n, err
}
