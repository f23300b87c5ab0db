package models

import (
	"time"

	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// All returns every model the service migrates, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Tournament{},
		&TournamentParticipant{},
		&GameRound{},
		&Referral{},
		&Ticket{},
		&LedgerEntry{},
	}
}
