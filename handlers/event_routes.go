// handlers/event_routes.go
package handlers

import (
	"loyalty-points-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// EventDeps bundles the services driven by upstream commerce events
type EventDeps struct {
	Cashback    *services.CashbackService
	Redemptions *services.RedemptionService
}

// SetupEventRoutes registers the internal surface called by the order and
// account services. These routes carry no end-user context; the gateway
// token is the only guard.
func SetupEventRoutes(app *fiber.App, deps EventDeps) {
	events := app.Group("/events")

	// Order placed: accrue pending cashback and advance spend milestones
	events.Post("/orders", func(c *fiber.Ctx) error {
		var req struct {
			UserID         string `json:"user_id" validate:"required"`
			BonusProgramID string `json:"bonus_program_id" validate:"required"`
			OrderID        string `json:"order_id" validate:"required"`
			OrderTotal     string `json:"order_total" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.BonusProgramID == "" || req.OrderID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id, bonus_program_id, order_id and order_total are required"})
		}

		total, err := decimal.NewFromString(req.OrderTotal)
		if err != nil || total.IsNegative() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order_total must be a non-negative decimal string"})
		}

		txn, completions, err := deps.Cashback.ProcessOrderCashback(req.UserID, req.BonusProgramID, req.OrderID, total)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"transaction":           txn,
			"milestone_completions": completions,
		})
	})

	// Order delivered/settled: pending points become spendable
	events.Post("/orders/:orderId/confirm", func(c *fiber.Ctx) error {
		txn, err := deps.Cashback.ConfirmOrderCashback(c.Params("orderId"))
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(txn)
	})

	// Order canceled/refunded: pending points evaporate
	events.Post("/orders/:orderId/cancel", func(c *fiber.Ctx) error {
		txn, err := deps.Cashback.CancelOrderCashback(c.Params("orderId"))
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(txn)
	})

	// New account signed up
	events.Post("/signup", func(c *fiber.Ctx) error {
		var req struct {
			UserID         string `json:"user_id" validate:"required"`
			BonusProgramID string `json:"bonus_program_id" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.BonusProgramID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and bonus_program_id are required"})
		}

		txn, err := deps.Cashback.GrantSignupBonus(req.UserID, req.BonusProgramID)
		if err != nil {
			return respondServiceError(c, err)
		}
		if txn == nil {
			// Bonus already granted, or the program grants none
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Status(fiber.StatusCreated).JSON(txn)
	})

	// Checkout applying a bonus coupon
	events.Post("/coupons/use", func(c *fiber.Ctx) error {
		var req struct {
			Code    string  `json:"code" validate:"required"`
			OrderID *string `json:"order_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Coupon code is required"})
		}

		coupon, err := deps.Redemptions.UseCoupon(req.Code, req.OrderID)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(coupon)
	})
}
