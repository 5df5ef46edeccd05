package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/koino/internal/middleware"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/services"
	"github.com/example/koino/internal/utils"
)

// PartnerHandler manages public merchant directory endpoints and the
// merchant's own profile.
type PartnerHandler struct {
	db    *gorm.DB
	files *services.FileService
	log   zerolog.Logger
}

// NewPartnerHandler constructs a PartnerHandler.
func NewPartnerHandler(db *gorm.DB, files *services.FileService, log zerolog.Logger) *PartnerHandler {
	return &PartnerHandler{db: db, files: files, log: log}
}

// List returns merchants windowed by an "index-count" path segment,
// newest first.
func (h *PartnerHandler) List(c *fiber.Ctx) error {
	offset := utils.ParseOffset(c.Params("offset"))

	partners := make([]models.User, 0)
	err := h.db.Where("role = ?", models.RoleMerchant).
		Order("created_at desc").
		Limit(offset.Limit).Offset(offset.Skip).
		Find(&partners).Error
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"data": partners,
		"code": fiber.StatusOK,
	})
}

// Get returns one merchant by id or slug.
func (h *PartnerHandler) Get(c *fiber.Ctx) error {
	identifier := c.Params("partner_id")

	query := h.db.Where("role = ?", models.RoleMerchant)
	if id, err := uuid.Parse(identifier); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("slug = ?", identifier)
	}

	var partner models.User
	if err := query.First(&partner).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "partner not found")
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"data": partner,
		"code": fiber.StatusOK,
	})
}

// UpdatePartnerRequest partially replaces a merchant's profile fields.
type UpdatePartnerRequest struct {
	Name        *string `json:"name" form:"name"`
	Sector      *string `json:"sector" form:"sector"`
	Phone       *string `json:"phone" form:"phone"`
	WebsiteURL  *string `json:"website_url" form:"website_url"`
	Street      *string `json:"street" form:"street"`
	PostCode    *string `json:"post_code" form:"post_code"`
	City        *string `json:"city" form:"city"`
}

// Update replaces a merchant's profile fields. A newly uploaded profile
// image replaces the stored one; removal of the old file is best-effort
// and partial failures are logged.
func (h *PartnerHandler) Update(c *fiber.Ctx) error {
	partnerID, err := uuid.Parse(c.Params("partner_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid partner_id")
	}

	var partner models.User
	if err := h.db.First(&partner, "id = ?", partnerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "partner not found")
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	req := middleware.Body[UpdatePartnerRequest](c)
	updates := map[string]interface{}{}

	if req.Name != nil {
		updates["name"] = *req.Name
		updates["slug"] = slug.Make(*req.Name)
	}
	if req.Sector != nil {
		updates["sector"] = *req.Sector
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.WebsiteURL != nil {
		updates["website_url"] = *req.WebsiteURL
	}
	if req.Street != nil {
		updates["street"] = *req.Street
	}
	if req.PostCode != nil {
		updates["post_code"] = *req.PostCode
	}
	if req.City != nil {
		updates["city"] = *req.City
	}

	newImageURL, err := h.files.Save(c, "imageURL", services.AssetProfile, partnerID)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "failed to store image")
	}
	if newImageURL != "" {
		if partner.ImageURL != "" {
			if err := h.files.Remove(partner.ImageURL, services.AssetProfile); err != nil {
				h.log.Warn().Err(err).
					Str("event", "asset_delete_failed").
					Str("partner_id", partnerID.String()).
					Msg("previous profile image not removed")
			}
		}
		updates["image_url"] = newImageURL
	}

	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", partnerID).Updates(updates).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	if err := h.db.First(&partner, "id = ?", partnerID).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{
		"data": partner,
		"code": fiber.StatusOK,
	})
}
