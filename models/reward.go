package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardType determines what a redemption produces
type RewardType string

const (
	RewardDiscountPercent RewardType = "discount_percent"
	RewardDiscountFixed   RewardType = "discount_fixed"
	RewardFreeShipping    RewardType = "free_shipping"
	RewardFreeProduct     RewardType = "free_product"
	RewardCashBack        RewardType = "cash_back"
)

// Reward is a catalog entry users redeem points against. Every type except
// cash_back produces a BonusCoupon; cash_back produces a PayoutRequest.
type Reward struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	BonusProgramID string `gorm:"type:uuid;not null;index" json:"bonus_program_id"`

	Name        string     `gorm:"not null" json:"name"`
	Slug        string     `gorm:"index" json:"slug"`
	Description string     `gorm:"type:text" json:"description"`
	Type        RewardType `gorm:"not null" json:"type"`

	PointsCost int64 `gorm:"not null" json:"points_cost"`

	// Type-specific value fields
	DiscountPercent decimal.Decimal `gorm:"type:numeric(5,2);default:0" json:"discount_percent"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"discount_amount"`
	CashAmount      decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"cash_amount"`
	FreeProductID   *string         `gorm:"type:uuid" json:"free_product_id,omitempty"`
	Currency        string          `gorm:"size:8;default:'USD'" json:"currency"`

	// Redemption limits; 0 = unlimited
	MaxRedemptionsPerUser int `gorm:"default:0" json:"max_redemptions_per_user"`
	TotalRedemptionsLimit int `gorm:"default:0" json:"total_redemptions_limit"`
	CurrentRedemptions    int `gorm:"default:0" json:"current_redemptions"`

	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`

	IsActive bool    `gorm:"default:true" json:"is_active"`
	Metadata JSONMap `json:"metadata,omitempty"`

	Timestamps
}

// BonusCouponStatus tracks the coupon lifecycle
type BonusCouponStatus string

const (
	CouponActive    BonusCouponStatus = "active"
	CouponUsed      BonusCouponStatus = "used"
	CouponExpired   BonusCouponStatus = "expired"
	CouponCancelled BonusCouponStatus = "cancelled"
)

// BonusCoupon is a single-use discount code minted from a redeemed reward.
// Independent of the points ledger once created.
type BonusCoupon struct {
	ID                 string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	RewardID           string `gorm:"type:uuid;not null;index" json:"reward_id"`
	UserID             string `gorm:"type:uuid;not null;index" json:"user_id"`
	BonusProgramID     string `gorm:"type:uuid;not null;index" json:"bonus_program_id"`
	BonusTransactionID string `gorm:"type:uuid;not null" json:"bonus_transaction_id"`

	Code string     `gorm:"uniqueIndex;not null" json:"code"`
	Type RewardType `gorm:"not null" json:"type"`

	DiscountPercent decimal.Decimal `gorm:"type:numeric(5,2);default:0" json:"discount_percent"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"discount_amount"`
	FreeProductID   *string         `gorm:"type:uuid" json:"free_product_id,omitempty"`

	Status    BonusCouponStatus `gorm:"not null;default:'active';index" json:"status"`
	ExpiresAt time.Time         `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time        `json:"used_at,omitempty"`
	OrderID   *string           `gorm:"type:uuid" json:"order_id,omitempty"`

	Timestamps
}

// PayoutRequestStatus models the cash-out approval workflow
type PayoutRequestStatus string

const (
	PayoutPending  PayoutRequestStatus = "pending"
	PayoutApproved PayoutRequestStatus = "approved"
	PayoutRejected PayoutRequestStatus = "rejected"
	PayoutPaid     PayoutRequestStatus = "paid"
)

// PayoutRequest is created when a cash_back reward is redeemed. It moves
// pending -> approved/rejected -> paid and never touches the points ledger
// after creation.
type PayoutRequest struct {
	ID                 string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID             string `gorm:"type:uuid;not null;index" json:"user_id"`
	BonusProgramID     string `gorm:"type:uuid;not null;index" json:"bonus_program_id"`
	RewardID           string `gorm:"type:uuid;not null" json:"reward_id"`
	BonusTransactionID string `gorm:"type:uuid;not null" json:"bonus_transaction_id"`

	Amount   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency string          `gorm:"size:8;default:'USD'" json:"currency"`

	// Free-form payout destination supplied by the user (bank, wallet, ...)
	PayoutDetails JSONMap `json:"payout_details,omitempty"`

	Status          PayoutRequestStatus `gorm:"not null;default:'pending';index" json:"status"`
	ReviewedBy      *string             `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time          `json:"reviewed_at,omitempty"`
	RejectionReason string              `gorm:"type:text" json:"rejection_reason,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`

	Timestamps
}
