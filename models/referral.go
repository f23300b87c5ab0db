package models

import "time"

// Referral tracks an invite and whether the inviter was paid for it
type Referral struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	InviterID string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_referral_pair,priority:1" json:"inviter_id"`
	InvitedID string `gorm:"type:varchar(36);not null;uniqueIndex;uniqueIndex:idx_referral_pair,priority:2" json:"invited_id"`

	Rewarded   bool       `gorm:"not null;default:false" json:"rewarded"`
	RewardedAt *time.Time `json:"rewarded_at,omitempty"`

	Timestamps
}
