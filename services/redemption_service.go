package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"loyalty-points-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponValidityDays is how long a freshly minted coupon stays redeemable.
const CouponValidityDays = 30

const couponCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const couponCodeLength = 12

// RedemptionService turns points into coupons or cash-payout requests. The
// whole redemption commits or rolls back as one unit: a failed coupon or
// payout insert never leaves points deducted.
type RedemptionService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewRedemptionService(db *gorm.DB, ledger *LedgerService) *RedemptionService {
	return &RedemptionService{DB: db, Ledger: ledger}
}

// RedemptionResult is what a successful redemption produced
type RedemptionResult struct {
	Transaction *models.BonusTransaction `json:"transaction"`
	Coupon      *models.BonusCoupon      `json:"coupon,omitempty"`
	Payout      *models.PayoutRequest    `json:"payout_request,omitempty"`
}

// CheckRewardEligibility runs the redemption gate checks in order, returning
// the first failure as its distinct sentinel. userRedemptions is how many
// times this user has already redeemed the reward.
func CheckRewardEligibility(reward *models.Reward, userRedemptions int64, now time.Time) error {
	if !reward.IsActive {
		return ErrRewardInactive
	}
	if reward.ValidFrom != nil && now.Before(*reward.ValidFrom) {
		return ErrRewardNotYetAvailable
	}
	if reward.ValidUntil != nil && now.After(*reward.ValidUntil) {
		return ErrRewardExpired
	}
	if reward.TotalRedemptionsLimit > 0 && reward.CurrentRedemptions >= reward.TotalRedemptionsLimit {
		return ErrRedemptionLimitReached
	}
	if reward.MaxRedemptionsPerUser > 0 && userRedemptions >= int64(reward.MaxRedemptionsPerUser) {
		return ErrUserRedemptionLimitReached
	}
	return nil
}

// RedeemReward validates eligibility, deducts the reward's point cost and
// produces either a BonusCoupon or, for cash_back rewards, a PayoutRequest.
func (s *RedemptionService) RedeemReward(userID, programID, rewardID string, payoutDetails models.JSONMap) (*RedemptionResult, error) {
	result := &RedemptionResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var reward models.Reward
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND bonus_program_id = ?", rewardID, programID).
			First(&reward).Error; err != nil {
			return err
		}

		userRedemptions, err := s.countUserRedemptions(tx, &reward, userID)
		if err != nil {
			return err
		}
		if err := CheckRewardEligibility(&reward, userRedemptions, time.Now()); err != nil {
			return err
		}

		if reward.Type == models.RewardCashBack {
			if len(payoutDetails) == 0 {
				return ErrPayoutDetailsRequired
			}

			txn, err := s.Ledger.deductPoints(tx, userID, programID, reward.PointsCost,
				models.TransactionRedeemedCash,
				fmt.Sprintf("Redeemed reward: %s", reward.Name),
				models.JSONMap{"reward_id": reward.ID})
			if err != nil {
				return err
			}
			result.Transaction = txn

			payout := &models.PayoutRequest{
				UserID:             userID,
				BonusProgramID:     programID,
				RewardID:           reward.ID,
				BonusTransactionID: txn.ID,
				Amount:             reward.CashAmount,
				Currency:           reward.Currency,
				PayoutDetails:      payoutDetails,
				Status:             models.PayoutPending,
			}
			if err := tx.Create(payout).Error; err != nil {
				return fmt.Errorf("failed to create payout request: %w", err)
			}
			result.Payout = payout
		} else {
			txn, err := s.Ledger.deductPoints(tx, userID, programID, reward.PointsCost,
				models.TransactionRedeemedDiscount,
				fmt.Sprintf("Redeemed reward: %s", reward.Name),
				models.JSONMap{"reward_id": reward.ID})
			if err != nil {
				return err
			}
			result.Transaction = txn

			code, err := s.uniqueCouponCode(tx)
			if err != nil {
				return err
			}
			coupon := &models.BonusCoupon{
				RewardID:           reward.ID,
				UserID:             userID,
				BonusProgramID:     programID,
				BonusTransactionID: txn.ID,
				Code:               code,
				Type:               reward.Type,
				DiscountPercent:    reward.DiscountPercent,
				DiscountAmount:     reward.DiscountAmount,
				FreeProductID:      reward.FreeProductID,
				Status:             models.CouponActive,
				ExpiresAt:          time.Now().AddDate(0, 0, CouponValidityDays),
			}
			if err := tx.Create(coupon).Error; err != nil {
				return fmt.Errorf("failed to create coupon: %w", err)
			}
			result.Coupon = coupon
		}

		return tx.Model(&models.Reward{}).
			Where("id = ?", reward.ID).
			Update("current_redemptions", gorm.Expr("current_redemptions + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Redemption] user %s redeemed reward %s for %d points", userID, rewardID, result.Transaction.Points)
	return result, nil
}

// countUserRedemptions counts prior redemptions of the reward by the user:
// coupons for coupon-producing types, payout requests for cash_back.
func (s *RedemptionService) countUserRedemptions(tx *gorm.DB, reward *models.Reward, userID string) (int64, error) {
	var count int64
	if reward.Type == models.RewardCashBack {
		err := tx.Model(&models.PayoutRequest{}).
			Where("reward_id = ? AND user_id = ? AND status <> ?", reward.ID, userID, models.PayoutRejected).
			Count(&count).Error
		return count, err
	}
	err := tx.Model(&models.BonusCoupon{}).
		Where("reward_id = ? AND user_id = ?", reward.ID, userID).
		Count(&count).Error
	return count, err
}

// GenerateCouponCode returns a random code from an unambiguous alphabet.
func GenerateCouponCode() string {
	code := make([]byte, couponCodeLength)
	max := big.NewInt(int64(len(couponCodeAlphabet)))
	for i := range code {
		n, _ := rand.Int(rand.Reader, max)
		code[i] = couponCodeAlphabet[n.Int64()]
	}
	return string(code)
}

func (s *RedemptionService) uniqueCouponCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := GenerateCouponCode()
		var count int64
		if err := tx.Model(&models.BonusCoupon{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique coupon code")
}

// UseCoupon consumes an active coupon against an order. Single use: the
// active -> used transition happens inside a locked transaction.
func (s *RedemptionService) UseCoupon(code string, orderID *string) (*models.BonusCoupon, error) {
	var coupon models.BonusCoupon
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&coupon).Error; err != nil {
			return err
		}
		if coupon.Status != models.CouponActive {
			return ErrCouponNotActive
		}
		if time.Now().After(coupon.ExpiresAt) {
			return ErrCouponExpired
		}

		now := time.Now()
		coupon.Status = models.CouponUsed
		coupon.UsedAt = &now
		coupon.OrderID = orderID
		return tx.Save(&coupon).Error
	})
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// CancelCoupon voids an active coupon without refunding points.
func (s *RedemptionService) CancelCoupon(couponID string) (*models.BonusCoupon, error) {
	var coupon models.BonusCoupon
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", couponID).
			First(&coupon).Error; err != nil {
			return err
		}
		if coupon.Status != models.CouponActive {
			return ErrCouponNotActive
		}
		coupon.Status = models.CouponCancelled
		return tx.Save(&coupon).Error
	})
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ExpireCoupons flips active coupons past their expiry to expired. Safe to
// run repeatedly; only active rows transition.
func (s *RedemptionService) ExpireCoupons() (int64, error) {
	result := s.DB.Model(&models.BonusCoupon{}).
		Where("status = ? AND expires_at <= ?", models.CouponActive, time.Now()).
		Update("status", models.CouponExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("[Redemption] expired %d coupons", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// ListUserCoupons returns a user's coupons in a program, newest first.
func (s *RedemptionService) ListUserCoupons(userID, programID string, status *models.BonusCouponStatus) ([]models.BonusCoupon, error) {
	query := s.DB.Where("user_id = ? AND bonus_program_id = ?", userID, programID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var coupons []models.BonusCoupon
	err := query.Order("created_at DESC").Find(&coupons).Error
	return coupons, err
}
