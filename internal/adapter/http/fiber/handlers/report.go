package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type ReportHandler struct {
	credits  ports.CreditRepository
	recorder ports.AuditRecorder
	log      *zap.Logger
}

func NewReportHandler(credits ports.CreditRepository, recorder ports.AuditRecorder, log *zap.Logger) *ReportHandler {
	return &ReportHandler{
		credits:  credits,
		recorder: recorder,
		log:      log,
	}
}

func (h *ReportHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.credits.Summary(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (h *ReportHandler) AuditTrail(c *fiber.Ctx) error {
	entityType := c.Params("entityType")
	id, err := parseID(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid entity id")
	}

	entries, err := h.recorder.ListByEntity(c.Context(), entityType, id)
	if err != nil {
		return err
	}
	return c.JSON(entries)
}
