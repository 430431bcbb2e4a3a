package services

import (
	"fmt"
	"log"
	"time"

	"loyalty-points-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService owns the points ledger: awards, deductions, the pending
// confirm/cancel lifecycle and FIFO expiration bookkeeping. Every mutating
// call runs in one database transaction and locks the account row it touches.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// AwardParams describes one point award. Idempotency is the caller's problem:
// dedupe per order/referral/milestone before calling.
type AwardParams struct {
	UserID      string
	ProgramID   string
	Points      int64
	Type        models.BonusTransactionType
	Status      models.BonusTransactionStatus // pending or confirmed
	Description string
	OrderID     *string
	ExpiresAt   *time.Time
	Metadata    models.JSONMap
}

// AwardPoints credits points to the (user, program) account, lazily creating
// it on first award. Confirmed awards move the current balance and, when
// ExpiresAt is set, open a PointsExpiration row. Pending awards only raise
// PendingPoints and leave the balance snapshots equal.
func (s *LedgerService) AwardPoints(p AwardParams) (*models.BonusTransaction, error) {
	var txn *models.BonusTransaction
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = s.awardPoints(tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *LedgerService) awardPoints(tx *gorm.DB, p AwardParams) (*models.BonusTransaction, error) {
	if p.Status == "" {
		p.Status = models.TransactionConfirmed
	}

	account, err := s.lockAccount(tx, p.UserID, p.ProgramID)
	if err != nil {
		return nil, err
	}

	balanceBefore, balanceAfter, err := ApplyAward(account, p.Points, p.Status, time.Now())
	if err != nil {
		return nil, err
	}

	if err := tx.Save(account).Error; err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	txn := &models.BonusTransaction{
		UserBonusAccountID: account.ID,
		UserID:             p.UserID,
		BonusProgramID:     p.ProgramID,
		Type:               p.Type,
		Status:             p.Status,
		Points:             p.Points,
		BalanceBefore:      balanceBefore,
		BalanceAfter:       balanceAfter,
		Description:        p.Description,
		OrderID:            p.OrderID,
		ExpiresAt:          p.ExpiresAt,
		Metadata:           p.Metadata,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	// Pending awards get their expiration row at confirmation time, not here
	if p.Status == models.TransactionConfirmed && p.ExpiresAt != nil {
		expiration := &models.PointsExpiration{
			UserBonusAccountID: account.ID,
			BonusTransactionID: txn.ID,
			Points:             p.Points,
			RemainingPoints:    p.Points,
			ExpiresAt:          *p.ExpiresAt,
		}
		if err := tx.Create(expiration).Error; err != nil {
			return nil, fmt.Errorf("failed to create expiration record: %w", err)
		}
	}

	return txn, nil
}

// DeductPoints removes points from the account's current balance. Fails with
// ErrInsufficientPoints when the balance cannot cover the deduction; never
// clamps. FIFO expiration bookkeeping runs on the same transaction.
func (s *LedgerService) DeductPoints(userID, programID string, points int64, txnType models.BonusTransactionType, description string, metadata models.JSONMap) (*models.BonusTransaction, error) {
	var txn *models.BonusTransaction
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = s.deductPoints(tx, userID, programID, points, txnType, description, metadata)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *LedgerService) deductPoints(tx *gorm.DB, userID, programID string, points int64, txnType models.BonusTransactionType, description string, metadata models.JSONMap) (*models.BonusTransaction, error) {
	account, err := s.lockAccount(tx, userID, programID)
	if err != nil {
		return nil, err
	}

	balanceBefore, balanceAfter, err := ApplyDeduction(account, points, time.Now())
	if err != nil {
		return nil, err
	}

	if err := tx.Save(account).Error; err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	if err := s.consumeExpirations(tx, account.ID, points); err != nil {
		return nil, err
	}

	txn := &models.BonusTransaction{
		UserBonusAccountID: account.ID,
		UserID:             userID,
		BonusProgramID:     programID,
		Type:               txnType,
		Status:             models.TransactionConfirmed,
		Points:             -points,
		BalanceBefore:      balanceBefore,
		BalanceAfter:       balanceAfter,
		Description:        description,
		Metadata:           metadata,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	return txn, nil
}

// ConfirmPendingPoints moves a pending award into the current balance.
// The original award's ExpiresAt is not re-derived into an expiration row here;
// callers that need expiring confirmed points award them as confirmed directly.
func (s *LedgerService) ConfirmPendingPoints(transactionID string) (*models.BonusTransaction, error) {
	var txn models.BonusTransaction
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", transactionID).
			First(&txn).Error; err != nil {
			return err
		}
		if txn.Status != models.TransactionPending {
			return ErrTransactionNotPending
		}

		var account models.UserBonusAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", txn.UserBonusAccountID).
			First(&account).Error; err != nil {
			return err
		}

		balanceAfter := ApplyConfirmation(&account, txn.Points, time.Now())
		if err := tx.Save(&account).Error; err != nil {
			return err
		}

		txn.Status = models.TransactionConfirmed
		txn.BalanceAfter = balanceAfter
		return tx.Save(&txn).Error
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// CancelPendingPoints voids a pending award. The points were never part of the
// current balance, so only PendingPoints moves.
func (s *LedgerService) CancelPendingPoints(transactionID string) (*models.BonusTransaction, error) {
	var txn models.BonusTransaction
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", transactionID).
			First(&txn).Error; err != nil {
			return err
		}
		if txn.Status != models.TransactionPending {
			return ErrTransactionNotPending
		}

		var account models.UserBonusAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", txn.UserBonusAccountID).
			First(&account).Error; err != nil {
			return err
		}

		ApplyCancellation(&account, txn.Points)
		if err := tx.Save(&account).Error; err != nil {
			return err
		}

		txn.Status = models.TransactionCanceled
		return tx.Save(&txn).Error
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// consumeExpirations applies a deduction against open expiration rows,
// oldest expiry first, so points closest to expiring are spent first.
func (s *LedgerService) consumeExpirations(tx *gorm.DB, accountID string, points int64) error {
	var rows []models.PointsExpiration
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_bonus_account_id = ? AND is_expired = false AND remaining_points > 0", accountID).
		Order("expires_at ASC").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load expiration rows: %w", err)
	}

	consumed := PlanFIFOConsumption(rows, points)
	for i, take := range consumed {
		if take == 0 {
			continue
		}
		rows[i].RemainingPoints -= take
		if err := tx.Save(&rows[i]).Error; err != nil {
			return fmt.Errorf("failed to update expiration row: %w", err)
		}
	}
	return nil
}

// ApplyAward credits an award against the account snapshot and returns the
// balance-before/after pair for the ledger row. Pending awards touch only
// PendingPoints, so both snapshots stay equal.
func ApplyAward(account *models.UserBonusAccount, points int64, status models.BonusTransactionStatus, now time.Time) (int64, int64, error) {
	if points <= 0 {
		return 0, 0, fmt.Errorf("award points must be positive, got %d", points)
	}
	balanceBefore := account.CurrentPoints
	switch status {
	case models.TransactionConfirmed:
		account.CurrentPoints += points
		account.TotalEarnedPoints += points
		account.LastEarnedAt = &now
		return balanceBefore, account.CurrentPoints, nil
	case models.TransactionPending:
		account.PendingPoints += points
		return balanceBefore, balanceBefore, nil
	default:
		return 0, 0, fmt.Errorf("unsupported award status %q", status)
	}
}

// ApplyDeduction debits the current balance, failing with
// ErrInsufficientPoints when it cannot cover the amount. The account is left
// untouched on failure.
func ApplyDeduction(account *models.UserBonusAccount, points int64, now time.Time) (int64, int64, error) {
	if points <= 0 {
		return 0, 0, fmt.Errorf("deduct points must be positive, got %d", points)
	}
	if account.CurrentPoints < points {
		return 0, 0, ErrInsufficientPoints
	}
	balanceBefore := account.CurrentPoints
	account.CurrentPoints -= points
	account.TotalRedeemedPoints += points
	account.LastRedeemedAt = &now
	return balanceBefore, account.CurrentPoints, nil
}

// ApplyConfirmation moves a pending award into the current balance and
// returns the new balance.
func ApplyConfirmation(account *models.UserBonusAccount, points int64, now time.Time) int64 {
	account.PendingPoints -= points
	if account.PendingPoints < 0 {
		account.PendingPoints = 0
	}
	account.CurrentPoints += points
	account.TotalEarnedPoints += points
	account.LastEarnedAt = &now
	return account.CurrentPoints
}

// ApplyCancellation releases a pending award. The points never reached
// the current balance, so only PendingPoints moves.
func ApplyCancellation(account *models.UserBonusAccount, points int64) {
	account.PendingPoints -= points
	if account.PendingPoints < 0 {
		account.PendingPoints = 0
	}
}

// ApplyExpiry writes off expired points, flooring the current balance at
// zero when part of the expiring lot was already spent.
func ApplyExpiry(account *models.UserBonusAccount, points int64) (int64, int64) {
	balanceBefore := account.CurrentPoints
	account.TotalExpiredPoints += points
	account.CurrentPoints -= points
	if account.CurrentPoints < 0 {
		account.CurrentPoints = 0
	}
	return balanceBefore, account.CurrentPoints
}

// PlanFIFOConsumption returns how many points to take from each row, in
// order, to cover a deduction. Rows must be sorted by expiry ascending.
// The total planned can fall short of points when the open rows do not cover
// the deduction (points awarded without expiry are not tracked here).
func PlanFIFOConsumption(rows []models.PointsExpiration, points int64) []int64 {
	consumed := make([]int64, len(rows))
	remaining := points
	for i := range rows {
		if remaining <= 0 {
			break
		}
		take := rows[i].RemainingPoints
		if take > remaining {
			take = remaining
		}
		consumed[i] = take
		remaining -= take
	}
	return consumed
}

// ExpirePoints is the periodic sweep. Each overdue row is claimed and zeroed
// in its own transaction, guarded by the is_expired check-and-set, so the
// sweep can run repeatedly and concurrently with deductions without
// double-expiring a row.
func (s *LedgerService) ExpirePoints() (int64, error) {
	now := time.Now()

	var due []models.PointsExpiration
	if err := s.DB.
		Where("is_expired = false AND remaining_points > 0 AND expires_at <= ?", now).
		Find(&due).Error; err != nil {
		return 0, fmt.Errorf("failed to scan expirations: %w", err)
	}

	var expiredTotal int64
	var expiredRows int64
	for _, candidate := range due {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var row models.PointsExpiration
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", candidate.ID).
				First(&row).Error; err != nil {
				return err
			}
			// A concurrent sweep or deduction may have claimed the row already
			if row.IsExpired || row.RemainingPoints <= 0 {
				return nil
			}

			var account models.UserBonusAccount
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", row.UserBonusAccountID).
				First(&account).Error; err != nil {
				return err
			}

			expiring := row.RemainingPoints
			balanceBefore, balanceAfter := ApplyExpiry(&account, expiring)
			if err := tx.Save(&account).Error; err != nil {
				return err
			}

			row.RemainingPoints = 0
			row.IsExpired = true
			if err := tx.Save(&row).Error; err != nil {
				return err
			}

			txn := &models.BonusTransaction{
				UserBonusAccountID: account.ID,
				UserID:             account.UserID,
				BonusProgramID:     account.BonusProgramID,
				Type:               models.TransactionExpired,
				Status:             models.TransactionConfirmed,
				Points:             -expiring,
				BalanceBefore:      balanceBefore,
				BalanceAfter:       balanceAfter,
				Description:        "Points expired",
				Metadata:           models.JSONMap{"points_expiration_id": row.ID},
			}
			if err := tx.Create(txn).Error; err != nil {
				return err
			}

			expiredTotal += expiring
			expiredRows++
			return nil
		})
		if err != nil {
			log.Printf("[Ledger] failed to expire row %s: %v", candidate.ID, err)
		}
	}

	if expiredTotal > 0 {
		log.Printf("[Ledger] expired %d points across %d rows", expiredTotal, expiredRows)
	}
	return expiredTotal, nil
}

// GetAccount returns the account for a (user, program) pair if it exists.
func (s *LedgerService) GetAccount(userID, programID string) (*models.UserBonusAccount, error) {
	var account models.UserBonusAccount
	err := s.DB.Where("user_id = ? AND bonus_program_id = ?", userID, programID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ListTransactions returns the user's ledger history, newest first.
func (s *LedgerService) ListTransactions(userID, programID string, page, size int) ([]models.BonusTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	query := s.DB.Model(&models.BonusTransaction{}).
		Where("user_id = ? AND bonus_program_id = ?", userID, programID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.BonusTransaction
	if err := query.
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// lockAccount fetches the account row FOR UPDATE, creating it on first award.
// The unique (user_id, bonus_program_id) index backs the upsert so concurrent
// first awards cannot create duplicates.
func (s *LedgerService) lockAccount(tx *gorm.DB, userID, programID string) (*models.UserBonusAccount, error) {
	seed := models.UserBonusAccount{
		UserID:         userID,
		BonusProgramID: programID,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "bonus_program_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}

	var account models.UserBonusAccount
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND bonus_program_id = ?", userID, programID).
		First(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return &account, nil
}
