package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lumix-energy/dmrv-engine/internal/ports"
)

type HealthHandler struct {
	db      *gorm.DB
	cache   ports.Cache
	version string
}

func NewHealthHandler(db *gorm.DB, cache ports.Cache, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   cache,
		version: version,
	}
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready reports degraded with 503 when postgres or the cache is unreachable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Context())
	}
	if err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(); err != nil {
			checks["cache"] = err.Error()
			healthy = false
		} else {
			checks["cache"] = "ok"
		}
	}

	status := fiber.StatusOK
	result := "ok"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		result = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": result,
		"checks": checks,
	})
}
