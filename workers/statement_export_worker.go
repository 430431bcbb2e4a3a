package workers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"loyalty-points-system/models"
	"loyalty-points-system/utils"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// StatementExporter periodically dumps each program's ledger transactions to
// object storage as CSV so the accounting/audit side can pick them up without
// touching the live database.
type StatementExporter struct {
	DB *gorm.DB
}

func NewStatementExporter(db *gorm.DB) *StatementExporter {
	return &StatementExporter{DB: db}
}

// RunStatementExports exports the previous window for every program on a
// fixed interval until the context is canceled.
func RunStatementExports(ctx context.Context, exporter *StatementExporter, interval time.Duration) {
	log.Println("Starting ledger statement export worker...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Statement export worker stopped.")
			return
		case <-ticker.C:
			to := time.Now().UTC()
			from := to.Add(-interval)
			if err := exporter.ExportAll(from, to); err != nil {
				log.Printf("❌ Statement export failed: %v", err)
			}
		}
	}
}

// ExportAll exports one statement per program that had activity in the window.
func (e *StatementExporter) ExportAll(from, to time.Time) error {
	var programs []models.BonusProgram
	if err := e.DB.Find(&programs).Error; err != nil {
		return fmt.Errorf("failed to list programs: %w", err)
	}

	printer := message.NewPrinter(language.English)
	for _, program := range programs {
		count, key, err := e.ExportProgramStatement(program.ID, from, to)
		if err != nil {
			log.Printf("❌ Failed to export statement for program %s: %v", program.ID, err)
			continue
		}
		if count == 0 {
			continue
		}
		log.Printf("✅ Exported %s transactions for program %q to %s",
			printer.Sprintf("%d", count), program.Name, key)
	}
	return nil
}

// ExportProgramStatement writes the program's transactions in [from, to) as
// CSV and uploads them. Returns the row count and the object key.
func (e *StatementExporter) ExportProgramStatement(programID string, from, to time.Time) (int, string, error) {
	var txns []models.BonusTransaction
	if err := e.DB.
		Where("bonus_program_id = ? AND created_at >= ? AND created_at < ?", programID, from, to).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return 0, "", fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(txns) == 0 {
		return 0, "", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{
		"id", "user_id", "type", "status", "points",
		"balance_before", "balance_after", "order_id", "expires_at", "created_at",
	})
	for _, txn := range txns {
		orderID := ""
		if txn.OrderID != nil {
			orderID = *txn.OrderID
		}
		expiresAt := ""
		if txn.ExpiresAt != nil {
			expiresAt = txn.ExpiresAt.UTC().Format(time.RFC3339)
		}
		_ = w.Write([]string{
			txn.ID,
			txn.UserID,
			string(txn.Type),
			string(txn.Status),
			strconv.FormatInt(txn.Points, 10),
			strconv.FormatInt(txn.BalanceBefore, 10),
			strconv.FormatInt(txn.BalanceAfter, 10),
			orderID,
			expiresAt,
			txn.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, "", fmt.Errorf("failed to build CSV: %w", err)
	}

	key := fmt.Sprintf("statements/%s/%s.csv", programID, to.Format("2006-01-02T15-04-05"))
	if _, err := utils.UploadStatement(key, buf.Bytes(), "text/csv"); err != nil {
		return 0, "", err
	}
	return len(txns), key, nil
}
