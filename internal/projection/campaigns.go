// Package projection builds flattened campaign read models: list rows
// annotated with denormalized merchant identity, a detail view that is the
// only query path exposing support-level data, and aggregate token totals
// for campaign progress reporting.
package projection

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/koino/internal/models"
)

// CampaignView is the public read contract for campaign lists. It never
// carries supports or any other backer data.
type CampaignView struct {
	MerchantID       uuid.UUID `json:"merchant_id"`
	MerchantName     string    `json:"merchant_name"`
	MerchantSlug     string    `json:"merchant_slug"`
	MerchantImageURL string    `json:"merchant_image_url"`

	CampaignID       uuid.UUID         `json:"campaign_id"`
	CampaignSlug     string            `json:"campaign_slug"`
	CampaignImageURL string            `json:"campaign_image_url"`
	Title            string            `json:"title"`
	Subtitle         string            `json:"subtitle"`
	Terms            string            `json:"terms"`
	Description      string            `json:"description"`
	Category         string            `json:"category"`
	Access           models.AccessTier `json:"access"`

	Quantitative bool    `json:"quantitative"`
	StepAmount   float64 `json:"step_amount"`
	MinAllowed   float64 `json:"min_allowed"`
	MaxAllowed   float64 `json:"max_allowed"`
	MaxAmount    float64 `json:"max_amount"`

	RedeemStarts int64 `json:"redeem_starts"`
	RedeemEnds   int64 `json:"redeem_ends"`
	StartsAt     int64 `json:"starts_at"`
	ExpiresAt    int64 `json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
}

// CampaignDetail extends the list view with the full supports array and
// token totals. Used for campaign-detail views only.
type CampaignDetail struct {
	CampaignView
	Address         string           `json:"address"`
	ContractIndex   int              `json:"contract_index"`
	Supports        []models.Support `json:"supports"`
	ConfirmedTokens TokenTotals      `json:"confirmed_tokens"`
	OrderedTokens   TokenTotals      `json:"ordered_tokens"`
}

// TokenTotals is a reduction over a campaign's supports.
type TokenTotals struct {
	InitialTokens  float64 `json:"initial_tokens"`
	RedeemedTokens float64 `json:"redeemed_tokens"`
}

// Filter narrows a campaign list query.
type Filter struct {
	Tiers      []models.AccessTier
	MerchantID *uuid.UUID
}

// VisibleTiers returns the access tiers a viewer may list. Unauthenticated
// viewers see only public campaigns; partner-tier campaigns are reserved
// for merchants and admins.
func VisibleTiers(viewer *models.User) []models.AccessTier {
	if viewer == nil {
		return []models.AccessTier{models.AccessPublic}
	}
	switch viewer.Role {
	case models.RoleMerchant, models.RoleAdmin:
		return []models.AccessTier{models.AccessPublic, models.AccessPrivate, models.AccessPartners}
	default:
		return []models.AccessTier{models.AccessPublic, models.AccessPrivate}
	}
}

const viewColumns = `campaigns.id AS campaign_id, campaigns.slug AS campaign_slug,
campaigns.image_url AS campaign_image_url,
campaigns.title, campaigns.subtitle, campaigns.terms, campaigns.description,
campaigns.category, campaigns.access,
campaigns.quantitative, campaigns.step_amount, campaigns.min_allowed,
campaigns.max_allowed, campaigns.max_amount,
campaigns.redeem_starts, campaigns.redeem_ends, campaigns.starts_at, campaigns.expires_at,
campaigns.created_at,
users.id AS merchant_id, users.name AS merchant_name,
users.slug AS merchant_slug, users.image_url AS merchant_image_url`

// ListCampaigns flattens campaigns into read-model rows filtered by access
// tier and optional merchant, newest first. An empty result is an empty
// slice, not an error.
func ListCampaigns(db *gorm.DB, filter Filter) ([]CampaignView, error) {
	views := make([]CampaignView, 0)

	query := db.Table("campaigns").
		Select(viewColumns).
		Joins("JOIN users ON users.id = campaigns.merchant_id").
		Where("campaigns.access IN ?", filter.Tiers)

	if filter.MerchantID != nil {
		query = query.Where("campaigns.merchant_id = ?", *filter.MerchantID)
	}

	if err := query.Order("campaigns.created_at DESC").Scan(&views).Error; err != nil {
		return nil, err
	}

	return views, nil
}

// GetCampaign loads a single campaign with its supports and token totals.
func GetCampaign(db *gorm.DB, merchantID, campaignID uuid.UUID) (*CampaignDetail, error) {
	var view CampaignView
	result := db.Table("campaigns").
		Select(viewColumns).
		Joins("JOIN users ON users.id = campaigns.merchant_id").
		Where("campaigns.id = ? AND campaigns.merchant_id = ?", campaignID, merchantID).
		Limit(1).
		Scan(&view)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var campaign models.Campaign
	if err := db.Preload("Supports").First(&campaign, "id = ?", campaignID).Error; err != nil {
		return nil, err
	}

	supports := campaign.Supports
	if supports == nil {
		supports = make([]models.Support, 0)
	}

	return &CampaignDetail{
		CampaignView:    view,
		Address:         campaign.Address,
		ContractIndex:   campaign.ContractIndex,
		Supports:        supports,
		ConfirmedTokens: SumTokens(supports, models.SupportConfirmation),
		OrderedTokens:   SumTokens(supports, models.SupportOrder),
	}, nil
}

// CampaignTotals sums initial and redeemed tokens over a campaign's
// confirmed supports. Supports still in order state, or already complete,
// do not count toward displayed totals.
func CampaignTotals(db *gorm.DB, merchantID, campaignID uuid.UUID) (TokenTotals, error) {
	var totals TokenTotals
	err := db.Table("supports").
		Select("COALESCE(SUM(supports.initial_tokens), 0) AS initial_tokens, COALESCE(SUM(supports.redeemed_tokens), 0) AS redeemed_tokens").
		Joins("JOIN campaigns ON campaigns.id = supports.campaign_id").
		Where("campaigns.id = ? AND campaigns.merchant_id = ? AND supports.status = ?",
			campaignID, merchantID, models.SupportConfirmation).
		Scan(&totals).Error
	return totals, err
}

// SumTokens reduces supports matching any of the given statuses.
func SumTokens(supports []models.Support, statuses ...models.SupportStatus) TokenTotals {
	var totals TokenTotals
	for _, support := range supports {
		for _, status := range statuses {
			if support.Status == status {
				totals.InitialTokens += support.InitialTokens
				totals.RedeemedTokens += support.RedeemedTokens
				break
			}
		}
	}
	return totals
}
