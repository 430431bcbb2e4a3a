package services

import (
	"errors"

	"gorm.io/gorm"
)

// Sentinel errors surfaced to the HTTP layer, which maps them onto
// 404/409/422 responses.
var (
	ErrInsufficientPoints    = errors.New("insufficient points")
	ErrTransactionNotPending = errors.New("transaction is not pending")

	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrReferralAlreadyUsed = errors.New("referral code already used")
	ErrSelfReferral        = errors.New("users cannot refer themselves")

	ErrProgramInactive = errors.New("bonus program is not active")

	ErrRewardInactive             = errors.New("reward is not active")
	ErrRewardExpired              = errors.New("reward validity window has ended")
	ErrRewardNotYetAvailable      = errors.New("reward is not yet available")
	ErrRedemptionLimitReached     = errors.New("reward redemption limit reached")
	ErrUserRedemptionLimitReached = errors.New("user redemption limit reached")
	ErrPayoutDetailsRequired      = errors.New("payout details are required for cash back rewards")

	ErrPayoutNotPending  = errors.New("payout request is not pending")
	ErrPayoutNotApproved = errors.New("payout request is not approved")

	ErrCouponNotActive = errors.New("coupon is not active")
	ErrCouponExpired   = errors.New("coupon has expired")
)

// IsNotFound lets handlers map missing records to 404 without importing gorm.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
