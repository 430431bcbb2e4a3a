package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"loyalty-points-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralCodeLength is the fixed length of generated referral codes.
const ReferralCodeLength = 10

// ReferralService issues referral codes, binds signups to them and pays out
// the two-sided bonus.
type ReferralService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewReferralService(db *gorm.DB, ledger *LedgerService) *ReferralService {
	return &ReferralService{DB: db, Ledger: ledger}
}

// GenerateReferralCode derives a code from the referrer id, the current time
// and a random suffix. Uniqueness is not cryptographically guaranteed; the
// unique index on the code column turns a collision into a retryable conflict.
func GenerateReferralCode(referrerUserID string) string {
	suffix := make([]byte, 8)
	_, _ = rand.Read(suffix)
	seed := fmt.Sprintf("%s:%d:%s", referrerUserID, time.Now().UnixNano(), hex.EncodeToString(suffix))
	sum := sha256.Sum256([]byte(seed))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:ReferralCodeLength]
}

// CreateReferral mints a referral code for the referrer within a program.
func (s *ReferralService) CreateReferral(programID, referrerUserID string) (*models.Referral, error) {
	var program models.BonusProgram
	if err := s.DB.Where("id = ?", programID).First(&program).Error; err != nil {
		return nil, err
	}
	if !program.IsActive {
		return nil, ErrProgramInactive
	}

	// Collisions are rare; retry a few times before giving up
	for attempt := 0; attempt < 3; attempt++ {
		referral := &models.Referral{
			BonusProgramID: programID,
			ReferrerUserID: referrerUserID,
			Code:           GenerateReferralCode(referrerUserID),
		}
		err := s.DB.Create(referral).Error
		if err == nil {
			return referral, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create referral: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to generate a unique referral code")
}

// TrackReferral binds a referred signup to the code. A code that is already
// bound to a user is rejected rather than rebound.
func (s *ReferralService) TrackReferral(code, referredUserID string) (*models.Referral, error) {
	var referral models.Referral
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
			First(&referral).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidReferralCode
			}
			return err
		}
		if referral.ReferrerUserID == referredUserID {
			return ErrSelfReferral
		}
		if referral.ReferredUserID != nil {
			return ErrReferralAlreadyUsed
		}

		now := time.Now()
		referral.ReferredUserID = &referredUserID
		referral.SignedUpAt = &now
		return tx.Save(&referral).Error
	})
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

// AwardReferralBonuses pays the referrer and referee bonuses. The two guard
// flags make each side fire exactly once, so the call is safe to repeat.
func (s *ReferralService) AwardReferralBonuses(referralID string) (*models.Referral, error) {
	var referral models.Referral
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", referralID).
			First(&referral).Error; err != nil {
			return err
		}
		if referral.ReferredUserID == nil {
			// Nothing to award until someone signs up with the code
			return nil
		}

		var program models.BonusProgram
		if err := tx.Where("id = ?", referral.BonusProgramID).First(&program).Error; err != nil {
			return err
		}

		if !referral.ReferrerBonusGiven && program.ReferrerBonusPoints > 0 {
			_, err := s.Ledger.awardPoints(tx, AwardParams{
				UserID:      referral.ReferrerUserID,
				ProgramID:   program.ID,
				Points:      program.ReferrerBonusPoints,
				Type:        models.TransactionEarnedReferral,
				Status:      models.TransactionConfirmed,
				Description: "Referral bonus (referrer)",
				ExpiresAt:   expiryFromProgram(&program),
				Metadata:    models.JSONMap{"referral_id": referral.ID},
			})
			if err != nil {
				return err
			}
			referral.ReferrerBonusGiven = true
		}

		if !referral.RefereeBonusGiven && program.RefereeBonusPoints > 0 {
			_, err := s.Ledger.awardPoints(tx, AwardParams{
				UserID:      *referral.ReferredUserID,
				ProgramID:   program.ID,
				Points:      program.RefereeBonusPoints,
				Type:        models.TransactionEarnedReferral,
				Status:      models.TransactionConfirmed,
				Description: "Referral bonus (referee)",
				ExpiresAt:   expiryFromProgram(&program),
				Metadata:    models.JSONMap{"referral_id": referral.ID},
			})
			if err != nil {
				return err
			}
			referral.RefereeBonusGiven = true
		}

		return tx.Save(&referral).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Referral] bonuses settled for referral %s", referral.ID)
	return &referral, nil
}

// ListReferrals returns a referrer's codes with their signup state.
func (s *ReferralService) ListReferrals(programID, referrerUserID string) ([]models.Referral, error) {
	var referrals []models.Referral
	err := s.DB.Where("bonus_program_id = ? AND referrer_user_id = ?", programID, referrerUserID).
		Order("created_at DESC").
		Find(&referrals).Error
	return referrals, err
}

// expiryFromProgram turns the program's expiry window into a concrete
// timestamp; nil when the program's points never expire.
func expiryFromProgram(program *models.BonusProgram) *time.Time {
	if program.PointsExpiryDays == nil || *program.PointsExpiryDays <= 0 {
		return nil
	}
	t := time.Now().AddDate(0, 0, *program.PointsExpiryDays)
	return &t
}
