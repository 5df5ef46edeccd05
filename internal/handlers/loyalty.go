package handlers

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/koino/internal/middleware"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/services"
	"github.com/example/koino/internal/utils"
)

// LoyaltyHandler manages loyalty point operations. Every mutating
// operation calls the chain gateway first and persists a transaction
// record only when that call succeeds: a gateway failure writes nothing.
type LoyaltyHandler struct {
	db    *gorm.DB
	chain *services.BlockchainService
	log   zerolog.Logger
}

// NewLoyaltyHandler constructs a LoyaltyHandler.
func NewLoyaltyHandler(db *gorm.DB, chain *services.BlockchainService, log zerolog.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{db: db, chain: chain, log: log}
}

// EarnPointsRequest credits points for a purchase amount.
type EarnPointsRequest struct {
	To     string  `json:"_to" form:"_to" validate:"required"`
	Amount float64 `json:"_amount" form:"_amount" validate:"required,gt=0"`
}

// Earn converts a purchase amount into points and credits them to the
// resolved customer through the chain gateway.
func (h *LoyaltyHandler) Earn(c *fiber.Ctx) error {
	merchant, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authorization required")
	}
	customer, ok := middleware.TargetCustomer(c)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "customer not found")
	}

	req := middleware.Body[EarnPointsRequest](c)
	points := amountToPoints(req.Amount)

	result, err := h.chain.EarnPoints(points, customer.AccountAddress, merchant.AccountAddress)
	if err != nil {
		h.log.Error().Err(err).Str("customer", customer.ID.String()).Msg("earn points failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}

	record := models.LoyaltyTransaction{
		FromID:    merchant.ID,
		ToID:      customer.ID,
		Type:      models.TxEarnPoints,
		FromName:  merchant.Name,
		FromEmail: merchant.Email,
		ToEmail:   customer.Email,
		Points:    points,
		Tx:        result.Tx,
		Receipt:   result.Receipt,
	}
	if err := h.db.Create(&record).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": result,
		"code": fiber.StatusCreated,
	})
}

// RedeemPointsRequest spends a customer's points at the merchant.
type RedeemPointsRequest struct {
	To      string  `json:"_to" form:"_to" validate:"required"`
	Points  float64 `json:"_points" form:"_points" validate:"required,gt=0"`
	OfferID string  `json:"offer_id" form:"offer_id"`
}

// Redeem spends the resolved customer's points through the chain gateway.
func (h *LoyaltyHandler) Redeem(c *fiber.Ctx) error {
	merchant, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authorization required")
	}
	customer, ok := middleware.TargetCustomer(c)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "customer not found")
	}

	req := middleware.Body[RedeemPointsRequest](c)
	points := math.Round(req.Points)

	result, err := h.chain.UsePoints(points, customer.AccountAddress, merchant.AccountAddress)
	if err != nil {
		h.log.Error().Err(err).Str("customer", customer.ID.String()).Msg("redeem points failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}

	record := models.LoyaltyTransaction{
		FromID:    merchant.ID,
		ToID:      customer.ID,
		Type:      models.TxRedeemPoints,
		FromName:  merchant.Name,
		FromEmail: merchant.Email,
		ToEmail:   customer.Email,
		Points:    points,
		Tx:        result.Tx,
		Receipt:   result.Receipt,
	}
	if err := h.db.Create(&record).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": result,
		"code": fiber.StatusCreated,
	})
}

// Balance returns the authenticated user's on-chain point balance.
func (h *LoyaltyHandler) Balance(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authorization required")
	}
	return h.respondBalance(c, user.AccountAddress)
}

// BalanceOf returns the resolved customer's balance for a merchant.
func (h *LoyaltyHandler) BalanceOf(c *fiber.Ctx) error {
	customer, ok := middleware.TargetCustomer(c)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "customer not found")
	}
	return h.respondBalance(c, customer.AccountAddress)
}

func (h *LoyaltyHandler) respondBalance(c *fiber.Ctx, address string) error {
	member, err := h.chain.Member(address)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"address": member.Address,
			"points":  member.Points,
		},
		"code": fiber.StatusOK,
	})
}

// Badge returns the authenticated user's loyalty score.
func (h *LoyaltyHandler) Badge(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authorization required")
	}
	return h.respondBadge(c, user.AccountAddress)
}

// BadgeOf returns the resolved customer's loyalty score for a merchant.
func (h *LoyaltyHandler) BadgeOf(c *fiber.Ctx) error {
	customer, ok := middleware.TargetCustomer(c)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "customer not found")
	}
	return h.respondBadge(c, customer.AccountAddress)
}

func (h *LoyaltyHandler) respondBadge(c *fiber.Ctx, address string) error {
	score, err := h.chain.LoyaltyScore(address)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"address": address,
			"points":  score,
		},
		"code": fiber.StatusOK,
	})
}

// Transactions lists the authenticated user's earn/redeem history,
// newest first.
func (h *LoyaltyHandler) Transactions(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authorization required")
	}

	pg := utils.ParsePagination(c)

	transactions := make([]models.LoyaltyTransaction, 0)
	err := h.db.
		Where("(from_id = ? OR to_id = ?)", user.ID, user.ID).
		Where("type IN ?", []models.TransactionType{models.TxEarnPoints, models.TxRedeemPoints}).
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&transactions).Error
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"data": transactions,
		"code": fiber.StatusOK,
	})
}

// PartnersInfo reports the chain's registered partner count.
func (h *LoyaltyHandler) PartnersInfo(c *fiber.Ctx) error {
	count, err := h.chain.PartnersInfoLength()
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}
	return c.JSON(fiber.Map{"data": count, "code": fiber.StatusOK})
}

// TransactionsInfo reports the chain's recorded transaction count.
func (h *LoyaltyHandler) TransactionsInfo(c *fiber.Ctx) error {
	count, err := h.chain.TransactionsInfoLength()
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}
	return c.JSON(fiber.Map{"data": count, "code": fiber.StatusOK})
}

// amountToPoints maps a purchase amount to loyalty points. The rate is
// one point per currency unit, rounded to the nearest whole point.
func amountToPoints(amount float64) float64 {
	return math.Round(amount)
}
