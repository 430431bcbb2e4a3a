package models

import (
	"github.com/shopspring/decimal"
)

// BonusProgram is an organization-scoped loyalty program configuration.
// Programs are soft-deleted so historical transactions keep a valid reference.
type BonusProgram struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	OrganizationID string `gorm:"type:uuid;not null;index" json:"organization_id"`

	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"index" json:"slug"`
	Description string `gorm:"type:text" json:"description"`

	// Earning rules
	PointsPerUnit     decimal.Decimal `gorm:"type:numeric(12,4);default:1" json:"points_per_unit"` // points per currency unit spent
	MinOrderAmount    decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"min_order_amount"`
	MaxPointsPerOrder int64           `gorm:"default:0" json:"max_points_per_order"` // 0 = uncapped

	// Lifecycle of earned points; nil = points never expire
	PointsExpiryDays *int `json:"points_expiry_days,omitempty"`

	// One-shot bonuses
	SignupBonusPoints   int64 `gorm:"default:0" json:"signup_bonus_points"`
	ReferrerBonusPoints int64 `gorm:"default:0" json:"referrer_bonus_points"`
	RefereeBonusPoints  int64 `gorm:"default:0" json:"referee_bonus_points"`

	IsActive bool    `gorm:"default:true" json:"is_active"`
	Metadata JSONMap `json:"metadata,omitempty"`

	Timestamps
}

// BonusTier is a point-threshold band within a program. Ordered by MinPoints
// ascending; the multiplier applies to points earned while in the tier.
type BonusTier struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	BonusProgramID string `gorm:"type:uuid;not null;index" json:"bonus_program_id"`

	Name       string          `gorm:"not null" json:"name"`
	MinPoints  int64           `gorm:"not null;default:0" json:"min_points"`
	Multiplier decimal.Decimal `gorm:"type:numeric(6,3);default:1" json:"multiplier"`
	IsActive   bool            `gorm:"default:true" json:"is_active"`

	Timestamps
}
