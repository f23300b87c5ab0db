// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"game-economy-service/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UsersService struct {
	DB        *gorm.DB
	referrals *ReferralService
	log       *zap.Logger
}

func NewUsersService(db *gorm.DB, referrals *ReferralService, logger *zap.Logger) *UsersService {
	return &UsersService{DB: db, referrals: referrals, log: logger.Named("users")}
}

// Profile is what the client sees about itself.
type Profile struct {
	*models.User
	UnusedTickets int64 `json:"unused_tickets"`
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// Register returns the user for telegramID, creating it on first contact.
// inviteCode links the new user to an inviter; an unknown code is ignored.
func (s *UsersService) Register(ctx context.Context, telegramID int64, username, inviteCode string) (*models.User, bool, error) {
	if telegramID <= 0 {
		return nil, false, newError(KindInvalidPayload, "telegram_id is required")
	}

	var existing models.User
	err := s.DB.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup telegram user %d: %w", telegramID, err)
	}

	user := models.User{
		ID:         uuid.NewString(),
		TelegramID: telegramID,
		Username:   strings.TrimSpace(username),
		InviteCode: newInviteCode(),
		Level:      1,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		code := strings.ToUpper(strings.TrimSpace(inviteCode))
		if code == "" {
			return nil
		}
		var inviter models.User
		err := tx.Select("id").Where("invite_code = ?", code).First(&inviter).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info("unknown invite code", zap.String("code", code), zap.Int64("telegram_id", telegramID))
			return nil
		}
		if err != nil {
			return err
		}
		return s.referrals.Link(tx, inviter.ID, user.ID)
	})
	if err != nil {
		// Lost a race with a concurrent registration of the same Telegram user.
		var again models.User
		if s.DB.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&again).Error == nil {
			return &again, false, nil
		}
		return nil, false, fmt.Errorf("register telegram user %d: %w", telegramID, err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.Int64("telegram_id", telegramID))
	return &user, true, nil
}

func (s *UsersService) Profile(ctx context.Context, userID string) (*Profile, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	tickets, err := s.referrals.UnusedTickets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count tickets for %s: %w", userID, err)
	}
	return &Profile{User: &user, UnusedTickets: tickets}, nil
}
