package models

import (
	"time"
)

// Currency names a balance column on users that the ledger may move.
type Currency string

const (
	CurrencyCoins Currency = "coins"
	CurrencyStars Currency = "stars"
)

// User is the ledger-relevant view of a player.
// Balances are only ever changed through relative, conditional updates (see services.Ledger).
type User struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TelegramID int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username   string `gorm:"index" json:"username"`
	InviteCode string `gorm:"uniqueIndex;type:varchar(16);not null" json:"invite_code"`

	Coins int64 `gorm:"not null;default:0;check:coins >= 0" json:"coins"`
	Stars int64 `gorm:"not null;default:0;check:stars >= 0" json:"stars"`
	Level int   `gorm:"not null;default:1" json:"level"`
	XP    int64 `gorm:"not null;default:0" json:"xp"`

	// Anti-cheat block. Set once, never cleared by the system.
	IsBlocked     bool       `gorm:"not null;default:false;index" json:"is_blocked"`
	BlockedReason string     `json:"blocked_reason,omitempty"`
	BlockedAt     *time.Time `json:"blocked_at,omitempty"`

	// Per-quest daily claim stamps, owned by the quest collaborator.
	DailyQuestClaimedAt *time.Time `json:"daily_quest_claimed_at,omitempty"`
	DailyBonusClaimedAt *time.Time `json:"daily_bonus_claimed_at,omitempty"`
	DailyRouletteSpinAt *time.Time `json:"daily_roulette_spin_at,omitempty"`

	Timestamps
}
