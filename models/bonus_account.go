package models

import "time"

// UserBonusAccount holds the point balance for one (user, program) pair.
// Created lazily on first award, never deleted.
//
// After every committed transaction:
//
//	CurrentPoints == TotalEarnedPoints - TotalRedeemedPoints - TotalExpiredPoints
//
// Pending points sit outside that equation until confirmed.
type UserBonusAccount struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID         string `gorm:"type:uuid;not null;uniqueIndex:idx_account_user_program" json:"user_id"`
	BonusProgramID string `gorm:"type:uuid;not null;uniqueIndex:idx_account_user_program" json:"bonus_program_id"`

	CurrentPoints       int64 `gorm:"default:0" json:"current_points"`
	PendingPoints       int64 `gorm:"default:0" json:"pending_points"`
	TotalEarnedPoints   int64 `gorm:"default:0" json:"total_earned_points"`
	TotalRedeemedPoints int64 `gorm:"default:0" json:"total_redeemed_points"`
	TotalExpiredPoints  int64 `gorm:"default:0" json:"total_expired_points"`

	// Cached tier resolution, refreshed by the tier service on read
	CurrentTierID *string `gorm:"type:uuid" json:"current_tier_id,omitempty"`
	TierProgress  float64 `gorm:"default:0" json:"tier_progress"`

	LastEarnedAt   *time.Time `json:"last_earned_at,omitempty"`
	LastRedeemedAt *time.Time `json:"last_redeemed_at,omitempty"`

	Timestamps
}
