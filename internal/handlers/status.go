package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/koino/internal/config"
	"github.com/example/koino/internal/services"
)

// StatusHandler reports platform health for operational monitoring.
type StatusHandler struct {
	db    *gorm.DB
	chain *services.BlockchainService
	cfg   *config.Config
}

// NewStatusHandler constructs a StatusHandler.
func NewStatusHandler(db *gorm.DB, chain *services.BlockchainService, cfg *config.Config) *StatusHandler {
	return &StatusHandler{db: db, chain: chain, cfg: cfg}
}

// Status reports database round-trip latency, chain gateway connectivity
// and gateway account balance, and the API version.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "database unavailable")
	}

	start := time.Now()
	if err := sqlDB.Ping(); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "database unavailable")
	}
	latency := time.Since(start)

	balance := "unavailable"
	if b, err := h.chain.GetBalance(); err == nil {
		balance = b
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"db_connection_status": "OK",
			"db_latency_ms":        latency.Milliseconds(),
			"api_version":          h.cfg.APIVersion,
			"chain_api_url":        h.cfg.ChainAPIURL,
			"chain_api_status":     h.chain.IsConnected(),
			"chain_api_balance":    balance,
		},
		"code": fiber.StatusOK,
	})
}
