package models

import "time"

// GameRound records one play session. It is created at round start with the
// server clock and finished exactly once.
type GameRound struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string `gorm:"type:varchar(36);not null;index" json:"user_id"`

	Clicks    int64 `gorm:"not null;default:0" json:"clicks"`
	EpicCount int64 `gorm:"not null;default:0" json:"epic_count"`
	Score     int64 `gorm:"not null;default:0" json:"score"` // client-reported, display only

	// Server-authoritative outcome
	ServerScore int64 `gorm:"not null;default:0" json:"server_score"`
	StarsEarned int64 `gorm:"not null;default:0" json:"stars_earned"`
	XPEarned    int64 `gorm:"not null;default:0" json:"xp_earned"`

	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	FinishedAt *time.Time `gorm:"index" json:"finished_at,omitempty"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
