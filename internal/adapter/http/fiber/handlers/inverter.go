package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lumix-energy/dmrv-engine/internal/domain"
	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type InverterHandler struct {
	ingestion ports.IngestionService
	inverters ports.InverterRepository
	readings  ports.ReadingRepository
	log       *zap.Logger
}

func NewInverterHandler(ingestion ports.IngestionService, inverters ports.InverterRepository, readings ports.ReadingRepository, log *zap.Logger) *InverterHandler {
	return &InverterHandler{
		ingestion: ingestion,
		inverters: inverters,
		readings:  readings,
		log:       log,
	}
}

func (h *InverterHandler) Create(c *fiber.Ctx) error {
	var req struct {
		Name       string  `json:"name"`
		GPSLat     float64 `json:"gps_lat"`
		GPSLon     float64 `json:"gps_lon"`
		CapacityKW float64 `json:"capacity_kw"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	inv := &domain.Inverter{
		Name:       req.Name,
		GPSLat:     req.GPSLat,
		GPSLon:     req.GPSLon,
		CapacityKW: req.CapacityKW,
	}
	if err := h.ingestion.RegisterInverter(c.Context(), inv); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (h *InverterHandler) List(c *fiber.Ctx) error {
	inverters, err := h.inverters.FindAll(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(inverters)
}

func (h *InverterHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid inverter id"})
	}

	inv, err := h.inverters.FindByID(c.Context(), id)
	if err != nil {
		return err
	}
	if inv == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Inverter not found"})
	}
	return c.JSON(inv)
}

func (h *InverterHandler) Readings(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid inverter id"})
	}

	inv, err := h.inverters.FindByID(c.Context(), id)
	if err != nil {
		return err
	}
	if inv == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Inverter not found"})
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -7)
	if raw := c.Query("start"); raw != "" {
		if start, err = time.Parse(time.RFC3339, raw); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start timestamp"})
		}
	}
	if raw := c.Query("end"); raw != "" {
		if end, err = time.Parse(time.RFC3339, raw); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end timestamp"})
		}
	}

	rows, err := h.readings.FindByInverterAndRange(c.Context(), id, start, end)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
