package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/koino/internal/middleware"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/projection"
)

// ContentHandler manages merchant community content: offers, posts and
// events.
type ContentHandler struct {
	db *gorm.DB
}

// NewContentHandler constructs a ContentHandler.
func NewContentHandler(db *gorm.DB) *ContentHandler {
	return &ContentHandler{db: db}
}

// Offers

// ListOffers returns offers, optionally scoped to one merchant.
func (h *ContentHandler) ListOffers(c *fiber.Ctx) error {
	query := h.db.Model(&models.Offer{})
	if param := c.Params("merchant_id"); param != "" {
		merchantID, err := uuid.Parse(param)
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
		}
		query = query.Where("merchant_id = ?", merchantID)
	}

	offers := make([]models.Offer, 0)
	if err := query.Order("created_at desc").Find(&offers).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{"data": offers, "code": fiber.StatusOK})
}

// OfferRequest carries offer editable fields.
type OfferRequest struct {
	Title       string  `json:"title" form:"title" validate:"required"`
	Description string  `json:"description" form:"description"`
	ImageURL    string  `json:"image_url" form:"image_url"`
	Cost        float64 `json:"cost" form:"cost" validate:"gte=0"`
	ExpiresAt   int64   `json:"expires_at" form:"expires_at"`
}

// CreateOffer appends a new offer to the owning merchant.
func (h *ContentHandler) CreateOffer(c *fiber.Ctx) error {
	merchantID, err := uuid.Parse(c.Params("merchant_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
	}

	req := middleware.Body[OfferRequest](c)
	offer := models.Offer{
		MerchantID:  merchantID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Cost:        req.Cost,
		ExpiresAt:   req.ExpiresAt,
	}

	if err := h.db.Create(&offer).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": offer, "code": fiber.StatusCreated})
}

// UpdateOffer replaces an offer's editable fields.
func (h *ContentHandler) UpdateOffer(c *fiber.Ctx) error {
	merchantID, resourceID, err := ownedResourceParams(c, "offer_id")
	if err != nil {
		return err
	}

	var offer models.Offer
	if err := h.db.First(&offer, "id = ? AND merchant_id = ?", resourceID, merchantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "offer not found")
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	req := middleware.Body[OfferRequest](c)
	offer.Title = req.Title
	offer.Description = req.Description
	offer.ImageURL = req.ImageURL
	offer.Cost = req.Cost
	offer.ExpiresAt = req.ExpiresAt

	if err := h.db.Save(&offer).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{"data": offer, "code": fiber.StatusOK})
}

// DeleteOffer removes an offer.
func (h *ContentHandler) DeleteOffer(c *fiber.Ctx) error {
	merchantID, resourceID, err := ownedResourceParams(c, "offer_id")
	if err != nil {
		return err
	}

	if err := h.db.Delete(&models.Offer{}, "id = ? AND merchant_id = ?", resourceID, merchantID).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{"message": "offer deleted", "code": fiber.StatusOK})
}

// Posts

// ListPosts returns posts visible to the caller, optionally scoped to one
// merchant.
func (h *ContentHandler) ListPosts(c *fiber.Ctx) error {
	viewer, _ := middleware.CurrentUser(c)

	query := h.db.Model(&models.Post{}).Where("access IN ?", projection.VisibleTiers(viewer))
	if param := c.Params("merchant_id"); param != "" {
		merchantID, err := uuid.Parse(param)
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
		}
		query = query.Where("merchant_id = ?", merchantID)
	}

	posts := make([]models.Post, 0)
	if err := query.Order("created_at desc").Find(&posts).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{"data": posts, "code": fiber.StatusOK})
}

// PostRequest carries post editable fields.
type PostRequest struct {
	Title    string `json:"title" form:"title" validate:"required"`
	Content  string `json:"content" form:"content"`
	ImageURL string `json:"image_url" form:"image_url"`
	Access   string `json:"access" form:"access" validate:"omitempty,oneof=public private partners"`
}

// CreatePost appends a new post to the owning merchant.
func (h *ContentHandler) CreatePost(c *fiber.Ctx) error {
	merchantID, err := uuid.Parse(c.Params("merchant_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
	}

	req := middleware.Body[PostRequest](c)
	access := models.AccessPublic
	if req.Access != "" {
		access = models.AccessTier(req.Access)
	}

	post := models.Post{
		MerchantID: merchantID,
		Title:      req.Title,
		Content:    req.Content,
		ImageURL:   req.ImageURL,
		Access:     access,
	}

	if err := h.db.Create(&post).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": post, "code": fiber.StatusCreated})
}

// DeletePost removes a post.
func (h *ContentHandler) DeletePost(c *fiber.Ctx) error {
	merchantID, resourceID, err := ownedResourceParams(c, "post_id")
	if err != nil {
		return err
	}

	if err := h.db.Delete(&models.Post{}, "id = ? AND merchant_id = ?", resourceID, merchantID).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{"message": "post deleted", "code": fiber.StatusOK})
}

// Events

// ListEvents returns events visible to the caller, optionally scoped to
// one merchant.
func (h *ContentHandler) ListEvents(c *fiber.Ctx) error {
	viewer, _ := middleware.CurrentUser(c)

	query := h.db.Model(&models.Event{}).Where("access IN ?", projection.VisibleTiers(viewer))
	if param := c.Params("merchant_id"); param != "" {
		merchantID, err := uuid.Parse(param)
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
		}
		query = query.Where("merchant_id = ?", merchantID)
	}

	events := make([]models.Event, 0)
	if err := query.Order("created_at desc").Find(&events).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{"data": events, "code": fiber.StatusOK})
}

// EventRequest carries event editable fields.
type EventRequest struct {
	Title       string `json:"title" form:"title" validate:"required"`
	Description string `json:"description" form:"description"`
	ImageURL    string `json:"image_url" form:"image_url"`
	Access      string `json:"access" form:"access" validate:"omitempty,oneof=public private"`
	Location    string `json:"location" form:"location"`
	DateTime    int64  `json:"date_time" form:"date_time"`
}

// CreateEvent appends a new event to the owning merchant.
func (h *ContentHandler) CreateEvent(c *fiber.Ctx) error {
	merchantID, err := uuid.Parse(c.Params("merchant_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
	}

	req := middleware.Body[EventRequest](c)
	access := models.AccessPublic
	if req.Access != "" {
		access = models.AccessTier(req.Access)
	}

	event := models.Event{
		MerchantID:  merchantID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Access:      access,
		Location:    req.Location,
		DateTime:    req.DateTime,
	}

	if err := h.db.Create(&event).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": event, "code": fiber.StatusCreated})
}

// DeleteEvent removes an event.
func (h *ContentHandler) DeleteEvent(c *fiber.Ctx) error {
	merchantID, resourceID, err := ownedResourceParams(c, "event_id")
	if err != nil {
		return err
	}

	if err := h.db.Delete(&models.Event{}, "id = ? AND merchant_id = ?", resourceID, merchantID).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "db error")
	}

	return c.JSON(fiber.Map{"message": "event deleted", "code": fiber.StatusOK})
}

func ownedResourceParams(c *fiber.Ctx, name string) (uuid.UUID, uuid.UUID, error) {
	merchantID, err := uuid.Parse(c.Params("merchant_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusUnprocessableEntity, "invalid merchant_id")
	}
	resourceID, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusUnprocessableEntity, "invalid "+name)
	}
	return merchantID, resourceID, nil
}
