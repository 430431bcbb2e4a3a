package services

import (
	"errors"
	"fmt"
	"log"

	"loyalty-points-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashbackService is the integration point for order events coming from the
// checkout system. It converts order totals into point awards (pending until
// the order is finalized) and feeds the spend/count milestones.
type CashbackService struct {
	DB         *gorm.DB
	Ledger     *LedgerService
	Tiers      *TierService
	Milestones *MilestoneService
}

func NewCashbackService(db *gorm.DB, ledger *LedgerService, tiers *TierService, milestones *MilestoneService) *CashbackService {
	return &CashbackService{DB: db, Ledger: ledger, Tiers: tiers, Milestones: milestones}
}

// CalculateOrderPoints applies the program's earning rule to an order total:
// rate x total x tier multiplier, floored to whole points, subject to the
// minimum order amount and the per-order cap.
func CalculateOrderPoints(program *models.BonusProgram, orderTotal, multiplier decimal.Decimal) int64 {
	if orderTotal.LessThan(program.MinOrderAmount) {
		return 0
	}
	points := orderTotal.Mul(program.PointsPerUnit).Mul(multiplier).IntPart()
	if program.MaxPointsPerOrder > 0 && points > program.MaxPointsPerOrder {
		points = program.MaxPointsPerOrder
	}
	if points < 0 {
		return 0
	}
	return points
}

// ProcessOrderCashback awards cashback points for one order, pending until
// the order is finalized, and advances the total_spent / order_count
// milestones. One award per order: a repeat call for the same order is a
// no-op returning the existing transaction.
func (s *CashbackService) ProcessOrderCashback(userID, programID, orderID string, orderTotal decimal.Decimal) (*models.BonusTransaction, []MilestoneCompletion, error) {
	var program models.BonusProgram
	if err := s.DB.Where("id = ?", programID).First(&program).Error; err != nil {
		return nil, nil, err
	}
	if !program.IsActive {
		return nil, nil, ErrProgramInactive
	}

	// Dedupe against the ledger before doing any work
	var existing models.BonusTransaction
	err := s.DB.Where("order_id = ? AND type = ? AND status <> ?",
		orderID, models.TransactionEarnedPurchase, models.TransactionCanceled).
		First(&existing).Error
	if err == nil {
		return &existing, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	multiplier, err := s.Tiers.Multiplier(userID, programID)
	if err != nil {
		return nil, nil, err
	}

	points := CalculateOrderPoints(&program, orderTotal, multiplier)

	var txn *models.BonusTransaction
	if points > 0 {
		txn, err = s.Ledger.AwardPoints(AwardParams{
			UserID:      userID,
			ProgramID:   programID,
			Points:      points,
			Type:        models.TransactionEarnedPurchase,
			Status:      models.TransactionPending,
			Description: fmt.Sprintf("Cashback for order %s", orderID),
			OrderID:     &orderID,
			ExpiresAt:   expiryFromProgram(&program),
			Metadata: models.JSONMap{
				"order_total": orderTotal.String(),
				"multiplier":  multiplier.String(),
			},
		})
		if err != nil {
			return nil, nil, err
		}
	}

	completions, err := s.Milestones.CheckMilestonesForEvent(userID, programID, models.MilestoneTotalSpent, orderTotal)
	if err != nil {
		return txn, nil, err
	}
	countCompletions, err := s.Milestones.CheckMilestonesForEvent(userID, programID, models.MilestoneOrderCount, decimal.NewFromInt(1))
	if err != nil {
		return txn, completions, err
	}
	completions = append(completions, countCompletions...)

	log.Printf("[Cashback] order %s: awarded %d pending points to user %s", orderID, points, userID)
	return txn, completions, nil
}

// ConfirmOrderCashback confirms the pending cashback award once the order is
// finalized.
func (s *CashbackService) ConfirmOrderCashback(orderID string) (*models.BonusTransaction, error) {
	txn, err := s.findOrderAward(orderID)
	if err != nil {
		return nil, err
	}
	return s.Ledger.ConfirmPendingPoints(txn.ID)
}

// CancelOrderCashback voids the pending cashback award for a canceled or
// refunded order.
func (s *CashbackService) CancelOrderCashback(orderID string) (*models.BonusTransaction, error) {
	txn, err := s.findOrderAward(orderID)
	if err != nil {
		return nil, err
	}
	return s.Ledger.CancelPendingPoints(txn.ID)
}

func (s *CashbackService) findOrderAward(orderID string) (*models.BonusTransaction, error) {
	var txn models.BonusTransaction
	err := s.DB.Where("order_id = ? AND type = ? AND status = ?",
		orderID, models.TransactionEarnedPurchase, models.TransactionPending).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GrantSignupBonus awards the program's one-time signup bonus. The ledger is
// checked first so a retried signup event cannot double-award.
func (s *CashbackService) GrantSignupBonus(userID, programID string) (*models.BonusTransaction, error) {
	var program models.BonusProgram
	if err := s.DB.Where("id = ?", programID).First(&program).Error; err != nil {
		return nil, err
	}
	if !program.IsActive {
		return nil, ErrProgramInactive
	}
	if program.SignupBonusPoints <= 0 {
		return nil, nil
	}

	var existing models.BonusTransaction
	err := s.DB.Where("user_id = ? AND bonus_program_id = ? AND type = ?",
		userID, programID, models.TransactionEarnedSignup).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return s.Ledger.AwardPoints(AwardParams{
		UserID:      userID,
		ProgramID:   programID,
		Points:      program.SignupBonusPoints,
		Type:        models.TransactionEarnedSignup,
		Status:      models.TransactionConfirmed,
		Description: "Signup bonus",
		ExpiresAt:   expiryFromProgram(&program),
	})
}
