// handlers/admin_routes.go
package handlers

import (
	"log"
	"strconv"

	"loyalty-points-system/middleware"
	"loyalty-points-system/models"
	"loyalty-points-system/services"

	"github.com/gofiber/fiber/v2"
)

// AdminDeps bundles the services the admin surface needs
type AdminDeps struct {
	Programs    *services.ProgramService
	Ledger      *services.LedgerService
	Payouts     *services.PayoutService
	Redemptions *services.RedemptionService
}

// SetupAdminRoutes registers program management and back-office operations.
// Everything here requires an admin role on top of the gateway user context.
func SetupAdminRoutes(app *fiber.App, deps AdminDeps) {
	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.AdminOnlyMiddleware())

	// Program catalog
	admin.Post("/programs", deps.Programs.CreateProgram)
	admin.Get("/programs", deps.Programs.ListPrograms)
	admin.Put("/programs/:programId", deps.Programs.UpdateProgram)
	admin.Delete("/programs/:programId", deps.Programs.DeleteProgram)

	// Tiers
	admin.Post("/programs/:programId/tiers", deps.Programs.CreateTier)
	admin.Get("/programs/:programId/tiers", deps.Programs.ListTiers)
	admin.Put("/programs/:programId/tiers/:tierId", deps.Programs.UpdateTier)

	// Rewards
	admin.Post("/programs/:programId/rewards", deps.Programs.CreateReward)
	admin.Get("/programs/:programId/rewards", deps.Programs.ListRewards)
	admin.Put("/programs/:programId/rewards/:rewardId", deps.Programs.UpdateReward)

	// Milestones
	admin.Post("/programs/:programId/milestones", deps.Programs.CreateMilestone)
	admin.Get("/programs/:programId/milestones", deps.Programs.ListMilestones)
	admin.Put("/programs/:programId/milestones/:milestoneId", deps.Programs.UpdateMilestone)

	// Manual point adjustments (support/compensation)
	admin.Post("/programs/:programId/adjustments", func(c *fiber.Ctx) error {
		programID := c.Params("programId")
		adminID := c.Locals("user_id").(string)

		var req struct {
			UserID      string         `json:"user_id" validate:"required"`
			Points      int64          `json:"points" validate:"required"`
			Description string         `json:"description"`
			Metadata    models.JSONMap `json:"metadata"`
		}
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.Points == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and a non-zero points value are required"})
		}

		meta := req.Metadata
		if meta == nil {
			meta = models.JSONMap{}
		}
		meta["adjusted_by"] = adminID

		var txn *models.BonusTransaction
		var err error
		if req.Points > 0 {
			txn, err = deps.Ledger.AwardPoints(services.AwardParams{
				UserID:      req.UserID,
				ProgramID:   programID,
				Points:      req.Points,
				Type:        models.TransactionEarnedManual,
				Status:      models.TransactionConfirmed,
				Description: req.Description,
				Metadata:    meta,
			})
		} else {
			txn, err = deps.Ledger.DeductPoints(req.UserID, programID, -req.Points,
				models.TransactionDeductedManual, req.Description, meta)
		}
		if err != nil {
			return respondServiceError(c, err)
		}

		log.Printf("🛠️ Manual adjustment of %d points for user %s by %s", req.Points, req.UserID, adminID)
		return c.Status(fiber.StatusCreated).JSON(txn)
	})

	// Pending transaction settlement
	admin.Post("/transactions/:transactionId/confirm", func(c *fiber.Ctx) error {
		txn, err := deps.Ledger.ConfirmPendingPoints(c.Params("transactionId"))
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(txn)
	})

	admin.Post("/transactions/:transactionId/cancel", func(c *fiber.Ctx) error {
		txn, err := deps.Ledger.CancelPendingPoints(c.Params("transactionId"))
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(txn)
	})

	// Payout review queue
	admin.Get("/programs/:programId/payouts", func(c *fiber.Ctx) error {
		programID := c.Params("programId")

		var status *models.PayoutRequestStatus
		if raw := c.Query("status"); raw != "" {
			s := models.PayoutRequestStatus(raw)
			status = &s
		}
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		payouts, total, err := deps.Payouts.ListPayouts(programID, status, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching payouts"})
		}
		return c.JSON(fiber.Map{
			"payouts": payouts,
			"page":    page,
			"size":    size,
			"total":   total,
		})
	})

	admin.Post("/payouts/:payoutId/approve", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)
		payout, err := deps.Payouts.ApprovePayout(c.Params("payoutId"), reviewerID)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(payout)
	})

	admin.Post("/payouts/:payoutId/reject", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)

		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil || req.Reason == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A rejection reason is required"})
		}

		payout, err := deps.Payouts.RejectPayout(c.Params("payoutId"), reviewerID, req.Reason)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(payout)
	})

	admin.Post("/payouts/:payoutId/paid", func(c *fiber.Ctx) error {
		payout, err := deps.Payouts.MarkPayoutPaid(c.Params("payoutId"))
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(payout)
	})

	// Coupon revocation
	admin.Post("/coupons/:couponId/cancel", func(c *fiber.Ctx) error {
		coupon, err := deps.Redemptions.CancelCoupon(c.Params("couponId"))
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(coupon)
	})

	// On-demand sweeps (the scheduler runs these hourly anyway)
	admin.Post("/sweeps/expire-points", func(c *fiber.Ctx) error {
		expired, err := deps.Ledger.ExpirePoints()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Expiry sweep failed"})
		}
		return c.JSON(fiber.Map{"expired_lots": expired})
	})

	admin.Post("/sweeps/expire-coupons", func(c *fiber.Ctx) error {
		expired, err := deps.Redemptions.ExpireCoupons()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Coupon sweep failed"})
		}
		return c.JSON(fiber.Map{"expired_coupons": expired})
	})
}
