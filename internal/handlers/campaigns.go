package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/koino/internal/middleware"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/projection"
	"github.com/example/koino/internal/services"
)

// CampaignHandler manages microcredit campaign reads and mutations.
type CampaignHandler struct {
	db    *gorm.DB
	files *services.FileService
	log   zerolog.Logger
}

// NewCampaignHandler constructs a CampaignHandler.
func NewCampaignHandler(db *gorm.DB, files *services.FileService, log zerolog.Logger) *CampaignHandler {
	return &CampaignHandler{db: db, files: files, log: log}
}

// ListPublic lists public campaigns, optionally scoped to one merchant.
// No authentication required.
func (h *CampaignHandler) ListPublic(c *fiber.Ctx) error {
	return h.list(c, []models.AccessTier{models.AccessPublic})
}

// ListPrivate lists campaigns visible to the authenticated caller,
// optionally scoped to one merchant.
func (h *CampaignHandler) ListPrivate(c *fiber.Ctx) error {
	viewer, _ := middleware.CurrentUser(c)
	return h.list(c, projection.VisibleTiers(viewer))
}

func (h *CampaignHandler) list(c *fiber.Ctx, tiers []models.AccessTier) error {
	filter := projection.Filter{Tiers: tiers}
	if param := c.Params("merchant_id"); param != "" {
		merchantID, err := uuid.Parse(param)
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
		}
		filter.MerchantID = &merchantID
	}

	views, err := projection.ListCampaigns(h.db, filter)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"data": views,
		"code": fiber.StatusOK,
	})
}

// Get returns a single campaign with its supports and token totals. This
// is the only read path that exposes support-level detail.
func (h *CampaignHandler) Get(c *fiber.Ctx) error {
	merchantID, campaignID, err := campaignParams(c)
	if err != nil {
		return err
	}

	detail, err := projection.GetCampaign(h.db, merchantID, campaignID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "campaign not found")
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"data": detail,
		"code": fiber.StatusOK,
	})
}

// Totals returns the campaign's confirmed token totals.
func (h *CampaignHandler) Totals(c *fiber.Ctx) error {
	merchantID, campaignID, err := campaignParams(c)
	if err != nil {
		return err
	}

	totals, err := projection.CampaignTotals(h.db, merchantID, campaignID)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"data": totals,
		"code": fiber.StatusOK,
	})
}

// CampaignRequest carries campaign editable fields. Sent as JSON or as
// multipart form fields next to an optional imageURL file part.
type CampaignRequest struct {
	Title       string `json:"title" form:"title" validate:"required"`
	Subtitle    string `json:"subtitle" form:"subtitle"`
	Terms       string `json:"terms" form:"terms"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category"`
	Access      string `json:"access" form:"access" validate:"required,oneof=public private partners"`

	Quantitative bool    `json:"quantitative" form:"quantitative"`
	StepAmount   float64 `json:"step_amount" form:"step_amount" validate:"gte=0"`
	MinAllowed   float64 `json:"min_allowed" form:"min_allowed" validate:"gte=0"`
	MaxAllowed   float64 `json:"max_allowed" form:"max_allowed" validate:"gte=0"`
	MaxAmount    float64 `json:"max_amount" form:"max_amount" validate:"gte=0"`

	RedeemStarts int64 `json:"redeem_starts" form:"redeem_starts"`
	RedeemEnds   int64 `json:"redeem_ends" form:"redeem_ends"`
	StartsAt     int64 `json:"starts_at" form:"starts_at"`
	ExpiresAt    int64 `json:"expires_at" form:"expires_at"`
}

// Create appends a new campaign to the owning merchant. An optional
// uploaded image is stored out-of-band; imageURL is empty when no file
// was attached.
func (h *CampaignHandler) Create(c *fiber.Ctx) error {
	merchantID, err := uuid.Parse(c.Params("merchant_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
	}

	req := middleware.Body[CampaignRequest](c)

	imageURL, err := h.files.Save(c, "imageURL", services.AssetItems, merchantID)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "failed to store image")
	}

	campaign := models.Campaign{
		MerchantID:   merchantID,
		Title:        req.Title,
		Subtitle:     req.Subtitle,
		Terms:        req.Terms,
		Description:  req.Description,
		Category:     req.Category,
		ImageURL:     imageURL,
		Slug:         slug.Make(req.Title),
		Access:       models.AccessTier(req.Access),
		Quantitative: req.Quantitative,
		StepAmount:   req.StepAmount,
		MinAllowed:   req.MinAllowed,
		MaxAllowed:   req.MaxAllowed,
		MaxAmount:    req.MaxAmount,
		RedeemStarts: req.RedeemStarts,
		RedeemEnds:   req.RedeemEnds,
		StartsAt:     req.StartsAt,
		ExpiresAt:    req.ExpiresAt,
	}

	if err := h.db.Create(&campaign).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": campaign,
		"code": fiber.StatusCreated,
	})
}

// UpdateCampaignRequest allows partial replacement of editable fields.
// The campaign id itself is never changed.
type UpdateCampaignRequest struct {
	Title       *string `json:"title" form:"title"`
	Subtitle    *string `json:"subtitle" form:"subtitle"`
	Terms       *string `json:"terms" form:"terms"`
	Description *string `json:"description" form:"description"`
	Category    *string `json:"category" form:"category"`
	Access      *string `json:"access" form:"access" validate:"omitempty,oneof=public private partners"`

	Quantitative *bool    `json:"quantitative" form:"quantitative"`
	StepAmount   *float64 `json:"step_amount" form:"step_amount" validate:"omitempty,gte=0"`
	MinAllowed   *float64 `json:"min_allowed" form:"min_allowed" validate:"omitempty,gte=0"`
	MaxAllowed   *float64 `json:"max_allowed" form:"max_allowed" validate:"omitempty,gte=0"`
	MaxAmount    *float64 `json:"max_amount" form:"max_amount" validate:"omitempty,gte=0"`

	RedeemStarts *int64 `json:"redeem_starts" form:"redeem_starts"`
	RedeemEnds   *int64 `json:"redeem_ends" form:"redeem_ends"`
	StartsAt     *int64 `json:"starts_at" form:"starts_at"`
	ExpiresAt    *int64 `json:"expires_at" form:"expires_at"`
}

// Update partially replaces a campaign's editable fields. A newly
// uploaded image replaces the stored one; deleting the previous file is
// best-effort and partial failures are logged, not surfaced.
func (h *CampaignHandler) Update(c *fiber.Ctx) error {
	merchantID, campaignID, err := campaignParams(c)
	if err != nil {
		return err
	}

	var campaign models.Campaign
	if err := h.db.First(&campaign, "id = ? AND merchant_id = ?", campaignID, merchantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "campaign not found")
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	req := middleware.Body[UpdateCampaignRequest](c)
	updates := map[string]interface{}{}

	if req.Title != nil {
		updates["title"] = *req.Title
		updates["slug"] = slug.Make(*req.Title)
	}
	if req.Subtitle != nil {
		updates["subtitle"] = *req.Subtitle
	}
	if req.Terms != nil {
		updates["terms"] = *req.Terms
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Access != nil {
		updates["access"] = *req.Access
	}
	if req.Quantitative != nil {
		updates["quantitative"] = *req.Quantitative
	}
	if req.StepAmount != nil {
		updates["step_amount"] = *req.StepAmount
	}
	if req.MinAllowed != nil {
		updates["min_allowed"] = *req.MinAllowed
	}
	if req.MaxAllowed != nil {
		updates["max_allowed"] = *req.MaxAllowed
	}
	if req.MaxAmount != nil {
		updates["max_amount"] = *req.MaxAmount
	}
	if req.RedeemStarts != nil {
		updates["redeem_starts"] = *req.RedeemStarts
	}
	if req.RedeemEnds != nil {
		updates["redeem_ends"] = *req.RedeemEnds
	}
	if req.StartsAt != nil {
		updates["starts_at"] = *req.StartsAt
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = *req.ExpiresAt
	}

	newImageURL, err := h.files.Save(c, "imageURL", services.AssetItems, merchantID)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "failed to store image")
	}
	if newImageURL != "" {
		if campaign.ImageURL != "" {
			if err := h.files.Remove(campaign.ImageURL, services.AssetItems); err != nil {
				h.log.Warn().Err(err).
					Str("event", "asset_delete_failed").
					Str("campaign_id", campaignID.String()).
					Msg("previous campaign image not removed")
			}
		}
		updates["image_url"] = newImageURL
	}

	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.db.Model(&models.Campaign{}).Where("id = ?", campaignID).Updates(updates).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"message": "campaign " + campaignID.String() + " updated",
		"code":    fiber.StatusOK,
	})
}

// Delete removes a campaign after a best-effort deletion of its stored
// image. Support and transaction records survive as historical fact.
func (h *CampaignHandler) Delete(c *fiber.Ctx) error {
	merchantID, campaignID, err := campaignParams(c)
	if err != nil {
		return err
	}

	var campaign models.Campaign
	if err := h.db.First(&campaign, "id = ? AND merchant_id = ?", campaignID, merchantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "campaign not found")
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	if campaign.ImageURL != "" {
		if err := h.files.Remove(campaign.ImageURL, services.AssetItems); err != nil {
			h.log.Warn().Err(err).
				Str("event", "asset_delete_failed").
				Str("campaign_id", campaignID.String()).
				Msg("campaign image not removed")
		}
	}

	if err := h.db.Delete(&models.Campaign{}, "id = ?", campaignID).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"message": "campaign " + campaignID.String() + " deleted",
		"code":    fiber.StatusOK,
	})
}

func campaignParams(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	merchantID, err := uuid.Parse(c.Params("merchant_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
	}
	campaignID, err := uuid.Parse(c.Params("campaign_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusUnprocessableEntity, "invalid campaign_id")
	}
	return merchantID, campaignID, nil
}
