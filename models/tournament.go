package models

import (
	"time"

	"gorm.io/datatypes"
)

// TournamentStatus is the settlement state machine: PLANNED → ACTIVE → FINISHED.
type TournamentStatus string

const (
	TournamentPlanned  TournamentStatus = "PLANNED"
	TournamentActive   TournamentStatus = "ACTIVE"
	TournamentFinished TournamentStatus = "FINISHED"
)

// TournamentKind separates the recurring windows from named events.
type TournamentKind string

const (
	TournamentHourly TournamentKind = "hourly"
	TournamentDaily  TournamentKind = "daily"
	TournamentEvent  TournamentKind = "event"
)

// IsRecurring reports whether entry fees accrue into the prize pool.
func (k TournamentKind) IsRecurring() bool {
	return k == TournamentHourly || k == TournamentDaily
}

// TournamentRules is the free-form payload shown to players and read by settlement.
type TournamentRules struct {
	Title      string  `json:"title"`
	PrizeSplit []int64 `json:"prize_split"` // percent per place, 1st first
}

// Tournament is one time-boxed competition window.
type Tournament struct {
	ID        string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	WindowKey string           `gorm:"uniqueIndex;type:varchar(128);not null" json:"window_key"`
	Kind      TournamentKind   `gorm:"type:varchar(16);not null" json:"kind"`
	Slug      *string          `gorm:"index;type:varchar(96)" json:"slug,omitempty"`
	Status    TournamentStatus `gorm:"type:varchar(16);not null;index:idx_tournament_status_ends,priority:1" json:"status"`

	StartsAt     time.Time `gorm:"not null" json:"starts_at"`
	JoinDeadline time.Time `gorm:"not null" json:"join_deadline"`
	EndsAt       time.Time `gorm:"not null;index:idx_tournament_status_ends,priority:2" json:"ends_at"`

	EntryFee  int64 `gorm:"not null;default:0;check:entry_fee >= 0" json:"entry_fee"`
	PrizePool int64 `gorm:"not null;default:0;check:prize_pool >= 0" json:"prize_pool"`

	Rules datatypes.JSONType[TournamentRules] `gorm:"type:jsonb" json:"rules"`

	// FinishedAt is stamped by the settlement claim, PaidOutAt by the payout transaction.
	// FINISHED with PaidOutAt == nil is the reconciliation signal.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	PaidOutAt  *time.Time `gorm:"index" json:"paid_out_at,omitempty"`

	Participants []TournamentParticipant `gorm:"foreignKey:TournamentID" json:"participants,omitempty"`

	Timestamps
}

// IsOpenAt reports whether joins and scores are accepted at now.
func (t *Tournament) IsOpenAt(now time.Time) bool {
	return t.Status == TournamentActive && now.Before(t.EndsAt)
}
