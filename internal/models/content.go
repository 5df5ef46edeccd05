package models

import "github.com/google/uuid"

// Offer is a merchant reward redeemable with loyalty points.
type Offer struct {
	BaseModel
	MerchantID  uuid.UUID `gorm:"type:uuid;index" json:"merchant_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Cost        float64   `json:"cost"`
	ExpiresAt   int64     `json:"expires_at"`
}

// Post is a merchant announcement with a visibility tier.
type Post struct {
	BaseModel
	MerchantID uuid.UUID  `gorm:"type:uuid;index" json:"merchant_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	ImageURL   string     `json:"image_url"`
	Access     AccessTier `gorm:"default:public" json:"access"`
}

// Event is a merchant event with location and schedule.
type Event struct {
	BaseModel
	MerchantID  uuid.UUID  `gorm:"type:uuid;index" json:"merchant_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Access      AccessTier `gorm:"default:public" json:"access"`
	Location    string     `json:"location"`
	DateTime    int64      `json:"date_time"`
}
