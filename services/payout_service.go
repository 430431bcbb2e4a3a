package services

import (
	"log"
	"time"

	"loyalty-points-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutService drives the cash-out approval workflow. Once a request exists
// it is independent of the points ledger: rejecting a payout does not refund
// points here, that is an explicit manual adjustment if the organization
// wants one.
type PayoutService struct {
	DB *gorm.DB
}

func NewPayoutService(db *gorm.DB) *PayoutService {
	return &PayoutService{DB: db}
}

// ApprovePayout moves pending -> approved.
func (s *PayoutService) ApprovePayout(payoutID, reviewerID string) (*models.PayoutRequest, error) {
	return s.review(payoutID, reviewerID, models.PayoutApproved, "")
}

// RejectPayout moves pending -> rejected with a reason.
func (s *PayoutService) RejectPayout(payoutID, reviewerID, reason string) (*models.PayoutRequest, error) {
	return s.review(payoutID, reviewerID, models.PayoutRejected, reason)
}

func (s *PayoutService) review(payoutID, reviewerID string, status models.PayoutRequestStatus, reason string) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", payoutID).
			First(&payout).Error; err != nil {
			return err
		}
		if payout.Status != models.PayoutPending {
			return ErrPayoutNotPending
		}

		now := time.Now()
		payout.Status = status
		payout.ReviewedBy = &reviewerID
		payout.ReviewedAt = &now
		payout.RejectionReason = reason
		return tx.Save(&payout).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Payout] request %s %s by %s", payout.ID, status, reviewerID)
	return &payout, nil
}

// MarkPayoutPaid moves approved -> paid once the disbursement went out.
func (s *PayoutService) MarkPayoutPaid(payoutID string) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", payoutID).
			First(&payout).Error; err != nil {
			return err
		}
		if payout.Status != models.PayoutApproved {
			return ErrPayoutNotApproved
		}

		now := time.Now()
		payout.Status = models.PayoutPaid
		payout.PaidAt = &now
		return tx.Save(&payout).Error
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// ListPayouts returns payout requests for a program, optionally filtered by
// status, newest first.
func (s *PayoutService) ListPayouts(programID string, status *models.PayoutRequestStatus, page, size int) ([]models.PayoutRequest, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	query := s.DB.Model(&models.PayoutRequest{}).Where("bonus_program_id = ?", programID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payouts []models.PayoutRequest
	if err := query.
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&payouts).Error; err != nil {
		return nil, 0, err
	}
	return payouts, total, nil
}

// ListUserPayouts returns one user's payout requests in a program.
func (s *PayoutService) ListUserPayouts(userID, programID string) ([]models.PayoutRequest, error) {
	var payouts []models.PayoutRequest
	err := s.DB.Where("user_id = ? AND bonus_program_id = ?", userID, programID).
		Order("created_at DESC").
		Find(&payouts).Error
	return payouts, err
}
