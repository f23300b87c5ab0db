package models

import "time"

// LedgerReason labels why a balance moved
type LedgerReason string

const (
	ReasonTournamentEntry LedgerReason = "tournament_entry"
	ReasonTournamentPrize LedgerReason = "tournament_prize"
	ReasonRoundReward     LedgerReason = "round_reward"
)

// LedgerEntry is the audit row written in the same transaction as every balance change.
type LedgerEntry struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string       `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Currency  Currency     `gorm:"type:varchar(16);not null" json:"currency"`
	Delta     int64        `gorm:"not null" json:"delta"`
	Reason    LedgerReason `gorm:"type:varchar(32);not null;index:idx_ledger_reason_ref,priority:1" json:"reason"`
	RefID     string       `gorm:"type:varchar(36);index:idx_ledger_reason_ref,priority:2" json:"ref_id"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}
