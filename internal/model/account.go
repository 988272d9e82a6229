package model

import "time"

// Auth provider tags. An account is created through exactly one of
// these and never switches.
const (
	ProviderPassword = "password"
	ProviderOAuth    = "oauth"
)

// Subscription tiers. Tier changes are driven by the payments side,
// this service only reads the value into profile projections.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

type Account struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string // empty for OAuth accounts
	FirstName    string
	LastName     string
	DisplayName  string
	Provider     string `gorm:"not null;default:password"`
	Tier         string `gorm:"not null;default:free"`
	Verified     bool   `gorm:"default:false"`
	AvatarURL    string
	CreatedAt    time.Time
}
