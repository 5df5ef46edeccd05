package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/koino/internal/config"
	"github.com/example/koino/internal/middleware"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/utils"
)

// PasswordResetHandler manages forgot-password endpoints.
type PasswordResetHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewPasswordResetHandler constructs a PasswordResetHandler.
func NewPasswordResetHandler(db *gorm.DB, cfg *config.Config) *PasswordResetHandler {
	return &PasswordResetHandler{db: db, cfg: cfg}
}

// ForgotPasswordRequest initiates the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// ForgotPassword validates the user and issues a single-use reset token
// with a 30 minute expiry.
func (h *PasswordResetHandler) ForgotPassword(c *fiber.Ctx) error {
	req := middleware.Body[ForgotPasswordRequest](c)

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}
	resetToken := hex.EncodeToString(tokenBytes)

	tokenHash, err := utils.HashPassword(resetToken)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash token")
	}

	record := models.PasswordResetToken{
		Email:     user.Email,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
	if err := h.db.Create(&record).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"reset_token": resetToken,
			"expires_at":  record.ExpiresAt,
		},
		"code": fiber.StatusOK,
	})
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Token    string `json:"token" form:"token" validate:"required"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
}

// ResetPassword consumes a reset token and replaces the user's password.
func (h *PasswordResetHandler) ResetPassword(c *fiber.Ctx) error {
	req := middleware.Body[ResetPasswordRequest](c)

	var record models.PasswordResetToken
	err := h.db.Where("email = ? AND used_at IS NULL", req.Email).
		Order("created_at desc").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "reset token not found")
		}
		return err
	}

	if record.ExpiresAt.Before(time.Now()) {
		return fiber.NewError(fiber.StatusBadRequest, "reset token expired")
	}

	if !utils.CheckPassword(record.TokenHash, req.Token) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid reset token")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	now := time.Now()
	record.UsedAt = &now
	if err := h.db.Save(&record).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	if err := h.db.Model(&models.User{}).Where("email = ?", req.Email).
		Update("password_hash", passwordHash).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"message": "password updated",
		"code":    fiber.StatusOK,
	})
}
