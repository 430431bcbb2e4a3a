package models

import "time"

// PointsExpiration tracks the un-spent remainder of one expiring award.
// Rows are consumed oldest-expiry-first on every deduction and finalized by
// the periodic sweep once ExpiresAt passes.
//
// Invariant: 0 <= RemainingPoints <= Points, and RemainingPoints only decreases.
type PointsExpiration struct {
	ID                 string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserBonusAccountID string `gorm:"type:uuid;not null;index" json:"user_bonus_account_id"`
	BonusTransactionID string `gorm:"type:uuid;not null;index" json:"bonus_transaction_id"`

	Points          int64     `gorm:"not null" json:"points"`
	RemainingPoints int64     `gorm:"not null" json:"remaining_points"`
	ExpiresAt       time.Time `gorm:"not null;index" json:"expires_at"`
	IsExpired       bool      `gorm:"default:false;index" json:"is_expired"`

	Timestamps
}
