package models

import "time"

// Role identifies what a user account is allowed to do on the platform.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleMerchant, RoleAdmin:
		return true
	}
	return false
}

// User represents a platform account: customer, merchant or admin.
// Merchants own campaigns, offers, posts and events; customers back
// campaigns and hold loyalty points on chain.
type User struct {
	BaseModel
	Name         string `json:"name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	Card         string `gorm:"index" json:"card"`
	PasswordHash string `json:"-"`
	ImageURL     string `json:"image_url"`
	Slug         string `gorm:"index" json:"slug"`

	Role   Role   `gorm:"index;default:customer" json:"role"`
	Sector string `json:"sector"`

	// AccountAddress is the user's account on the loyalty chain,
	// assigned by the chain gateway at registration.
	AccountAddress string `json:"account_address"`

	EmailVerified bool `json:"email_verified"`

	Phone      string `json:"phone"`
	WebsiteURL string `json:"website_url"`
	Street     string `json:"street"`
	PostCode   string `json:"post_code"`
	City       string `json:"city"`

	Campaigns []Campaign `gorm:"foreignKey:MerchantID" json:"campaigns,omitempty"`
	Offers    []Offer    `gorm:"foreignKey:MerchantID" json:"offers,omitempty"`
	Posts     []Post     `gorm:"foreignKey:MerchantID" json:"posts,omitempty"`
	Events    []Event    `gorm:"foreignKey:MerchantID" json:"events,omitempty"`
}

// IsAdmin reports whether the user may bypass ownership checks.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PasswordResetToken is a single-use token for the forgot-password flow.
type PasswordResetToken struct {
	BaseModel
	Email     string     `gorm:"index" json:"email"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
}
