package models

import "github.com/google/uuid"

// AccessTier controls who can see a campaign, post or event.
type AccessTier string

const (
	AccessPublic   AccessTier = "public"
	AccessPrivate  AccessTier = "private"
	AccessPartners AccessTier = "partners"
)

// Valid reports whether the tier is one of the known values.
func (a AccessTier) Valid() bool {
	switch a {
	case AccessPublic, AccessPrivate, AccessPartners:
		return true
	}
	return false
}

// SupportStatus tracks a backer's pledge through its lifecycle.
type SupportStatus string

const (
	SupportOrder        SupportStatus = "order"
	SupportConfirmation SupportStatus = "confirmation"
	SupportComplete     SupportStatus = "complete"
)

// Campaign is a merchant-defined microcredit campaign: visibility tier,
// token bounds and a redemption window. Campaigns were embedded documents
// in the legacy schema; here they are first-class rows keyed to the
// owning merchant.
type Campaign struct {
	BaseModel
	MerchantID uuid.UUID `gorm:"type:uuid;index" json:"merchant_id"`
	Merchant   *User     `json:"merchant,omitempty"`

	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle"`
	Terms       string     `json:"terms"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	ImageURL    string     `json:"image_url"`
	Slug        string     `gorm:"index" json:"slug"`
	Access      AccessTier `gorm:"index;default:public" json:"access"`

	Quantitative bool    `json:"quantitative"`
	StepAmount   float64 `json:"step_amount"`
	MinAllowed   float64 `json:"min_allowed"`
	MaxAllowed   float64 `json:"max_allowed"`
	MaxAmount    float64 `json:"max_amount"`

	// Window bounds are unix milliseconds, matching the chain contract.
	RedeemStarts int64 `json:"redeem_starts"`
	RedeemEnds   int64 `json:"redeem_ends"`
	StartsAt     int64 `json:"starts_at"`
	ExpiresAt    int64 `json:"expires_at"`

	// Address and ContractIndex locate the campaign on chain once funded.
	Address       string `json:"address"`
	ContractIndex int    `json:"contract_index"`

	Supports []Support `gorm:"foreignKey:CampaignID" json:"supports,omitempty"`
}

// Support is a customer's pledge against a campaign. Supports survive
// campaign deletion as historical fact, so BackerID and CampaignID are
// weak references without cascade.
type Support struct {
	BaseModel
	CampaignID uuid.UUID `gorm:"type:uuid;index" json:"campaign_id"`
	BackerID   uuid.UUID `gorm:"type:uuid;index" json:"backer_id"`
	PaymentID  string    `json:"payment_id"`

	InitialTokens  float64 `json:"initial_tokens"`
	RedeemedTokens float64 `json:"redeemed_tokens"`

	Status SupportStatus `gorm:"index;default:order" json:"status"`
}
