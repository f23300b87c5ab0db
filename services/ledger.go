package services

import (
	"errors"
	"fmt"

	"game-economy-service/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Ledger is the only writer of user balances. Every method takes the caller's
// transaction so a balance change commits or rolls back with the rest of the work.
type Ledger struct {
	clock clockwork.Clock
}

func NewLedger(clock clockwork.Clock) *Ledger {
	return &Ledger{clock: clock}
}

func balanceColumn(c models.Currency) (string, error) {
	switch c {
	case models.CurrencyCoins, models.CurrencyStars:
		return string(c), nil
	}
	return "", fmt.Errorf("unknown currency %q", c)
}

// Credit adds amount to the user's balance. Blocked users are not credited.
func (l *Ledger) Credit(tx *gorm.DB, userID string, currency models.Currency, amount int64, reason models.LedgerReason, refID string) error {
	if amount < 0 {
		return newError(KindInvalidPayload, "credit amount %d is negative", amount)
	}
	if amount == 0 {
		return nil
	}
	col, err := balanceColumn(currency)
	if err != nil {
		return err
	}

	res := tx.Model(&models.User{}).
		Where("id = ? AND is_blocked = ?", userID, false).
		UpdateColumn(col, gorm.Expr(col+" + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("credit %s for %s: %w", col, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := l.explainMiss(tx, userID); err != nil {
			return err
		}
		return fmt.Errorf("credit %s for %s: no row updated", col, userID)
	}
	return l.record(tx, userID, currency, amount, reason, refID)
}

// Debit subtracts amount if the balance covers it, in one conditional write.
func (l *Ledger) Debit(tx *gorm.DB, userID string, currency models.Currency, amount int64, reason models.LedgerReason, refID string) error {
	if amount < 0 {
		return newError(KindInvalidPayload, "debit amount %d is negative", amount)
	}
	if amount == 0 {
		return nil
	}
	col, err := balanceColumn(currency)
	if err != nil {
		return err
	}

	res := tx.Model(&models.User{}).
		Where("id = ? AND is_blocked = ? AND "+col+" >= ?", userID, false, amount).
		UpdateColumn(col, gorm.Expr(col+" - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("debit %s for %s: %w", col, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := l.explainMiss(tx, userID); err != nil {
			return err
		}
		return newError(KindInsufficientFunds, "%s balance below %d", col, amount)
	}
	return l.record(tx, userID, currency, -amount, reason, refID)
}

// explainMiss turns a zero-row conditional update into the reason it missed.
// It returns nil when the user exists and is not blocked.
func (l *Ledger) explainMiss(tx *gorm.DB, userID string) error {
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
	return nil
}

func (l *Ledger) record(tx *gorm.DB, userID string, currency models.Currency, delta int64, reason models.LedgerReason, refID string) error {
	entry := models.LedgerEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Currency:  currency,
		Delta:     delta,
		Reason:    reason,
		RefID:     refID,
		CreatedAt: l.clock.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record ledger entry: %w", err)
	}
	return nil
}
