package models

import "time"

// TournamentParticipant = paid entry + best score for one user in one tournament
type TournamentParticipant struct {
	ID           string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string `gorm:"type:varchar(36);not null;uniqueIndex:idx_participant_user_tournament,priority:1" json:"user_id"`
	TournamentID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_participant_user_tournament,priority:2;index" json:"tournament_id"`

	// Best submitted score; only ever moves upward.
	Score    int64     `gorm:"not null;default:0;check:score >= 0" json:"score"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`

	// Written by settlement
	FinalRank int   `gorm:"not null;default:0" json:"final_rank"` // 0 = not ranked
	Prize     int64 `gorm:"not null;default:0" json:"prize"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Timestamps
}
