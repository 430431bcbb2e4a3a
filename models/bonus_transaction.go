package models

import "time"

// BonusTransactionType classifies ledger entries
type BonusTransactionType string

const (
	TransactionEarnedPurchase   BonusTransactionType = "earned_purchase"
	TransactionEarnedReferral   BonusTransactionType = "earned_referral"
	TransactionEarnedMilestone  BonusTransactionType = "earned_milestone"
	TransactionEarnedSignup     BonusTransactionType = "earned_signup"
	TransactionEarnedManual     BonusTransactionType = "earned_manual"
	TransactionRedeemedDiscount BonusTransactionType = "redeemed_discount"
	TransactionRedeemedCash     BonusTransactionType = "redeemed_cash"
	TransactionDeductedManual   BonusTransactionType = "deducted_manual"
	TransactionExpired          BonusTransactionType = "expired"
)

// BonusTransactionStatus tracks the two-phase point lifecycle
type BonusTransactionStatus string

const (
	TransactionPending   BonusTransactionStatus = "pending"
	TransactionConfirmed BonusTransactionStatus = "confirmed"
	TransactionCanceled  BonusTransactionStatus = "canceled"
)

// BonusTransaction is an immutable ledger row. Rows are append-only; the only
// permitted mutation is the pending -> confirmed or pending -> canceled status
// transition, which happens exactly once.
type BonusTransaction struct {
	ID                 string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserBonusAccountID string `gorm:"type:uuid;not null;index" json:"user_bonus_account_id"`
	UserID             string `gorm:"type:uuid;not null;index" json:"user_id"`
	BonusProgramID     string `gorm:"type:uuid;not null;index" json:"bonus_program_id"`

	Type   BonusTransactionType   `gorm:"not null;index" json:"type"`
	Status BonusTransactionStatus `gorm:"not null;default:'confirmed'" json:"status"`

	// Signed delta: positive for awards, negative for deductions/expiry
	Points        int64 `gorm:"not null" json:"points"`
	BalanceBefore int64 `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64 `gorm:"not null" json:"balance_after"`

	Description string     `gorm:"type:text" json:"description"`
	OrderID     *string    `gorm:"type:uuid;index" json:"order_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Metadata    JSONMap    `json:"metadata,omitempty"`

	Timestamps
}

// IsEarning reports whether the row represents points flowing in
func (t *BonusTransaction) IsEarning() bool {
	switch t.Type {
	case TransactionEarnedPurchase, TransactionEarnedReferral, TransactionEarnedMilestone,
		TransactionEarnedSignup, TransactionEarnedManual:
		return true
	default:
		return false
	}
}
