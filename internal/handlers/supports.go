package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/koino/internal/middleware"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/services"
)

// SupportHandler manages the backer lifecycle of a campaign:
// order -> confirmation -> complete. Every transition goes through the
// chain gateway first; a MicrocreditTransaction is written only on
// gateway success.
type SupportHandler struct {
	db    *gorm.DB
	chain *services.BlockchainService
	log   zerolog.Logger
}

// NewSupportHandler constructs a SupportHandler.
func NewSupportHandler(db *gorm.DB, chain *services.BlockchainService, log zerolog.Logger) *SupportHandler {
	return &SupportHandler{db: db, chain: chain, log: log}
}

// PromiseRequest pledges tokens against a campaign.
type PromiseRequest struct {
	Amount    float64 `json:"_amount" form:"_amount" validate:"required,gt=0"`
	PaymentID string  `json:"payment_id" form:"payment_id"`
}

// Promise records a customer's pledge: PromiseFund on chain, then a new
// Support row in order state.
func (h *SupportHandler) Promise(c *fiber.Ctx) error {
	backer, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authorization required")
	}

	campaign, merchant, err := h.loadCampaign(c)
	if err != nil {
		return err
	}

	req := middleware.Body[PromiseRequest](c)

	result, err := h.chain.PromiseFund(backer.AccountAddress, merchant.AccountAddress, req.Amount)
	if err != nil {
		h.log.Error().Err(err).Str("campaign_id", campaign.ID.String()).Msg("promise fund failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}

	support := models.Support{
		CampaignID:    campaign.ID,
		BackerID:      backer.ID,
		PaymentID:     req.PaymentID,
		InitialTokens: req.Amount,
		Status:        models.SupportOrder,
	}
	if err := h.db.Create(&support).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	if err := h.record(models.FundPromise, backer.ID, campaign, support.ID, result); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"support": support,
			"tx":      result.Tx,
		},
		"code": fiber.StatusCreated,
	})
}

// Confirm moves a pledged support into confirmation once its payment has
// cleared: ReceiveFund on chain, then the status transition.
func (h *SupportHandler) Confirm(c *fiber.Ctx) error {
	campaign, merchant, err := h.loadCampaign(c)
	if err != nil {
		return err
	}

	support, err := h.loadSupport(c, campaign.ID)
	if err != nil {
		return err
	}
	if support.Status != models.SupportOrder {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "support is not pending confirmation")
	}

	backer, err := h.loadBacker(support.BackerID)
	if err != nil {
		return err
	}

	result, err := h.chain.ReceiveFund(backer.AccountAddress, merchant.AccountAddress, campaign.ContractIndex, support.InitialTokens)
	if err != nil {
		h.log.Error().Err(err).Str("support_id", support.ID.String()).Msg("receive fund failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}

	if err := h.db.Model(support).Update("status", models.SupportConfirmation).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	if err := h.record(models.FundReceive, support.BackerID, campaign, support.ID, result); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "support " + support.ID.String() + " confirmed",
		"code":    fiber.StatusOK,
	})
}

// Revert rolls a confirmed support back to order state: RevertFund on
// chain, then the status transition.
func (h *SupportHandler) Revert(c *fiber.Ctx) error {
	campaign, merchant, err := h.loadCampaign(c)
	if err != nil {
		return err
	}

	support, err := h.loadSupport(c, campaign.ID)
	if err != nil {
		return err
	}
	if support.Status != models.SupportConfirmation {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "support is not confirmed")
	}

	backer, err := h.loadBacker(support.BackerID)
	if err != nil {
		return err
	}

	result, err := h.chain.RevertFund(backer.AccountAddress, merchant.AccountAddress, campaign.ContractIndex, support.InitialTokens)
	if err != nil {
		h.log.Error().Err(err).Str("support_id", support.ID.String()).Msg("revert fund failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}

	if err := h.db.Model(support).Update("status", models.SupportOrder).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	if err := h.record(models.FundRevert, support.BackerID, campaign, support.ID, result); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "support " + support.ID.String() + " reverted",
		"code":    fiber.StatusOK,
	})
}

// SpendRequest redeems tokens from a confirmed support.
type SpendRequest struct {
	Tokens float64 `json:"_tokens" form:"_tokens" validate:"required,gt=0"`
}

// Spend redeems tokens from a confirmed support: SpendFund on chain, then
// the redeemed counter moves. A fully spent support becomes complete.
func (h *SupportHandler) Spend(c *fiber.Ctx) error {
	campaign, merchant, err := h.loadCampaign(c)
	if err != nil {
		return err
	}

	support, err := h.loadSupport(c, campaign.ID)
	if err != nil {
		return err
	}
	if support.Status != models.SupportConfirmation {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "support is not confirmed")
	}

	req := middleware.Body[SpendRequest](c)
	remaining := support.InitialTokens - support.RedeemedTokens
	if req.Tokens > remaining {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "insufficient tokens")
	}

	backer, err := h.loadBacker(support.BackerID)
	if err != nil {
		return err
	}

	result, err := h.chain.SpendFund(backer.AccountAddress, merchant.AccountAddress, campaign.ContractIndex, req.Tokens)
	if err != nil {
		h.log.Error().Err(err).Str("support_id", support.ID.String()).Msg("spend fund failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, "chain error: "+err.Error())
	}

	updates := map[string]interface{}{
		"redeemed_tokens": support.RedeemedTokens + req.Tokens,
	}
	if support.RedeemedTokens+req.Tokens >= support.InitialTokens {
		updates["status"] = models.SupportComplete
	}

	if err := h.db.Model(support).Updates(updates).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	if err := h.record(models.FundSpend, support.BackerID, campaign, support.ID, result); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"tx":              result.Tx,
			"redeemed_tokens": support.RedeemedTokens + req.Tokens,
		},
		"code": fiber.StatusOK,
	})
}

func (h *SupportHandler) loadCampaign(c *fiber.Ctx) (*models.Campaign, *models.User, error) {
	merchantID, campaignID, err := campaignParams(c)
	if err != nil {
		return nil, nil, err
	}

	var campaign models.Campaign
	if err := h.db.First(&campaign, "id = ? AND merchant_id = ?", campaignID, merchantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fiber.NewError(fiber.StatusNotFound, "campaign not found")
		}
		return nil, nil, fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	var merchant models.User
	if err := h.db.First(&merchant, "id = ?", merchantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fiber.NewError(fiber.StatusNotFound, "merchant not found")
		}
		return nil, nil, fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return &campaign, &merchant, nil
}

func (h *SupportHandler) loadSupport(c *fiber.Ctx, campaignID uuid.UUID) (*models.Support, error) {
	supportID, err := uuid.Parse(c.Params("support_id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "invalid support_id")
	}

	var support models.Support
	if err := h.db.First(&support, "id = ? AND campaign_id = ?", supportID, campaignID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "support not found")
		}
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return &support, nil
}

func (h *SupportHandler) loadBacker(backerID uuid.UUID) (*models.User, error) {
	var backer models.User
	if err := h.db.First(&backer, "id = ?", backerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "backer not found")
		}
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}
	return &backer, nil
}

func (h *SupportHandler) record(fundType models.FundType, userID uuid.UUID, campaign *models.Campaign, supportID uuid.UUID, result *services.FundResult) error {
	record := models.MicrocreditTransaction{
		Type:          fundType,
		Address:       campaign.Address,
		UserID:        userID,
		CampaignID:    campaign.ID,
		SupportID:     supportID,
		ContractIndex: result.ContractIndex,
		Tx:            result.Tx,
		Receipt:       result.Receipt,
	}
	if err := h.db.Create(&record).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}
	return nil
}
