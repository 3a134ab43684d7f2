package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type IngestionHandler struct {
	ingestion ports.IngestionService
	log       *zap.Logger
}

func NewIngestionHandler(ingestion ports.IngestionService, log *zap.Logger) *IngestionHandler {
	return &IngestionHandler{
		ingestion: ingestion,
		log:       log,
	}
}

// Ingest accepts a JSON array of raw readings. Batches already committed stay
// committed on a mid-stream failure, so the count is returned beside any
// error rather than instead of it.
func (h *IngestionHandler) Ingest(c *fiber.Ctx) error {
	var rows []domain.RawReading
	if err := c.BodyParser(&rows); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if len(rows) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No readings supplied"})
	}

	persisted, err := h.ingestion.Ingest(c.Context(), rows)
	if err != nil {
		status := fiber.StatusInternalServerError
		var refErr *domain.ReferenceError
		var valErr *domain.ValidationError
		switch {
		case errors.As(err, &refErr):
			status = fiber.StatusNotFound
		case errors.As(err, &valErr):
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"error":     err.Error(),
			"persisted": persisted,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"persisted": persisted,
	})
}
