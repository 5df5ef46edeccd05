package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/koino/internal/models"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// Stats returns aggregate platform counters for the admin dashboard.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	type bucket struct {
		Key   string `json:"key"`
		Count int64  `json:"count"`
	}

	var usersByRole []bucket
	if err := h.db.Model(&models.User{}).
		Select("role as key, count(*) as count").
		Group("role").
		Scan(&usersByRole).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	var transactionsByType []bucket
	if err := h.db.Model(&models.LoyaltyTransaction{}).
		Select("type as key, count(*) as count").
		Group("type").
		Scan(&transactionsByType).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	var supportsByStatus []bucket
	if err := h.db.Model(&models.Support{}).
		Select("status as key, count(*) as count").
		Group("status").
		Scan(&supportsByStatus).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	var totalCampaigns int64
	if err := h.db.Model(&models.Campaign{}).Count(&totalCampaigns).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	roles := make(map[string]int64)
	for _, b := range usersByRole {
		roles[b.Key] = b.Count
	}
	txTypes := make(map[string]int64)
	for _, b := range transactionsByType {
		txTypes[b.Key] = b.Count
	}
	statuses := make(map[string]int64)
	for _, b := range supportsByStatus {
		statuses[b.Key] = b.Count
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"users_by_role":        roles,
			"transactions_by_type": txTypes,
			"supports_by_status":   statuses,
			"total_campaigns":      totalCampaigns,
		},
		"code": fiber.StatusOK,
	})
}
