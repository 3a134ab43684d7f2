package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type CreditHandler struct {
	carbon       ports.CarbonService
	verification ports.VerificationService
	credits      ports.CreditRepository
	log          *zap.Logger
}

func NewCreditHandler(carbon ports.CarbonService, verification ports.VerificationService, credits ports.CreditRepository, log *zap.Logger) *CreditHandler {
	return &CreditHandler{
		carbon:       carbon,
		verification: verification,
		credits:      credits,
		log:          log,
	}
}

func (h *CreditHandler) Calculate(c *fiber.Ctx) error {
	id, date, err := parseCreditKey(c)
	if err != nil {
		return err
	}

	credit, err := h.carbon.CalculateDailyCredit(c.Context(), id, date)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(credit)
}

func (h *CreditHandler) Verify(c *fiber.Ctx) error {
	id, date, err := parseCreditKey(c)
	if err != nil {
		return err
	}

	credit, err := h.verification.VerifyCredit(c.Context(), id, date)
	if err != nil {
		return err
	}
	return c.JSON(credit)
}

func (h *CreditHandler) Get(c *fiber.Ctx) error {
	id, date, err := parseCreditKey(c)
	if err != nil {
		return err
	}

	credit, err := h.credits.FindByInverterAndDate(c.Context(), id, date)
	if err != nil {
		return err
	}
	if credit == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Credit not found"})
	}
	return c.JSON(credit)
}

func (h *CreditHandler) List(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid inverter id"})
	}

	credits, err := h.credits.FindByInverter(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(credits)
}

// OverrideStatus bypasses the verification state machine. Administrative
// escape hatch; every call is audited.
func (h *CreditHandler) OverrideStatus(c *fiber.Ctx) error {
	id, date, err := parseCreditKey(c)
	if err != nil {
		return err
	}

	var req struct {
		Status domain.CreditStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	credit, err := h.verification.OverrideStatus(c.Context(), id, date, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(credit)
}

func parseCreditKey(c *fiber.Ctx) (uint, time.Time, error) {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return 0, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Invalid inverter id")
	}
	date, err := time.Parse("2006-01-02", c.Params("date"))
	if err != nil {
		return 0, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}
	return id, date, nil
}
