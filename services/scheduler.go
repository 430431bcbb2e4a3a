// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweepScheduler runs the periodic ledger maintenance: the points expiry
// sweep and the coupon expiry sweep. Both are idempotent, so overlapping runs
// are harmless. The caller shuts the returned scheduler down on exit.
func StartSweepScheduler(ledger *LedgerService, redemptions *RedemptionService) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			if _, err := ledger.ExpirePoints(); err != nil {
				log.Printf("[Scheduler] points expiry sweep failed: %v", err)
			}
		}),
	); err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			if _, err := redemptions.ExpireCoupons(); err != nil {
				log.Printf("[Scheduler] coupon expiry sweep failed: %v", err)
			}
		}),
	); err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
