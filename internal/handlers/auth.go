package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/koino/internal/config"
	"github.com/example/koino/internal/middleware"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/services"
	"github.com/example/koino/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db    *gorm.DB
	cfg   *config.Config
	chain *services.BlockchainService
	log   zerolog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, chain *services.BlockchainService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, chain: chain, log: log}
}

// RegisterRequest creates a customer or merchant account.
type RegisterRequest struct {
	Name     string `json:"name" form:"name" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
	Role     string `json:"role" form:"role" validate:"omitempty,oneof=customer merchant"`
	Sector   string `json:"sector" form:"sector"`
	Card     string `json:"card" form:"card"`
}

// Register creates a new user account. The chain account is registered
// first; only when the gateway succeeds is the user row written, together
// with a RegisterMember or RegisterPartner transaction record.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	req := middleware.Body[RegisterRequest](c)

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "user already exists")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	role := models.RoleCustomer
	if req.Role != "" {
		role = models.Role(req.Role)
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	userID := uuid.New()
	account, err := h.chain.RegisterAccount(userID, role)
	if err != nil {
		h.log.Error().Err(err).Str("email", req.Email).Msg("chain registration failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: registration failed")
	}

	user := models.User{
		BaseModel:      models.BaseModel{ID: userID},
		Name:           req.Name,
		Email:          req.Email,
		Card:           req.Card,
		PasswordHash:   passwordHash,
		Slug:           slug.Make(req.Name),
		Role:           role,
		Sector:         req.Sector,
		AccountAddress: account.Address,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	txType := models.TxRegisterMember
	if role == models.RoleMerchant {
		txType = models.TxRegisterPartner
	}

	record := models.LoyaltyTransaction{
		FromID:    user.ID,
		ToID:      user.ID,
		Type:      txType,
		FromName:  user.Name,
		FromEmail: user.Email,
		ToEmail:   user.Email,
		Tx:        account.Tx,
		Receipt:   account.Receipt,
	}
	if err := h.db.Create(&record).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user":  user,
			"token": token,
		},
		"code": fiber.StatusCreated,
	})
}

// LoginRequest authenticates an existing user.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Login authenticates an existing user and issues a token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req := middleware.Body[LoginRequest](c)

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":  user,
			"token": token,
		},
		"code": fiber.StatusOK,
	})
}
