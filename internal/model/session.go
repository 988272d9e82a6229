package model

import "time"

// Session backs an opaque token handed out on the OAuth path. Bearer
// tokens from password login self-encode owner and expiry and are never
// written here.
type Session struct {
	ID        int    `gorm:"primaryKey;autoIncrement"`
	AccountID string `gorm:"index;not null"`
	Token     string `gorm:"uniqueIndex;not null"`
	IssuedAt  time.Time
	ExpiresAt time.Time
}
