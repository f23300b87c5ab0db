package models

import "time"

// TicketType indicates where a ticket came from
type TicketType string

const (
	TicketReferral   TicketType = "REFERRAL"
	TicketQuest      TicketType = "QUEST"
	TicketRoulette   TicketType = "ROULETTE"
	TicketTournament TicketType = "TOURNAMENT"
)

// Ticket is an append-only consumable. Unused means UsedAt is nil.
type Ticket struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string     `gorm:"type:varchar(36);not null;index:idx_ticket_user_unused,priority:1" json:"user_id"`
	Type      TicketType `gorm:"type:varchar(16);not null" json:"type"`
	UsedAt    *time.Time `gorm:"index:idx_ticket_user_unused,priority:2" json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
