package model

import "time"

// VerificationCode is the single live email-ownership challenge for an
// address. The unique index on Email enforces at-most-one live code;
// reissuing overwrites instead of accumulating.
type VerificationCode struct {
	ID        int    `gorm:"primaryKey;autoIncrement"`
	Email     string `gorm:"uniqueIndex;not null"`
	Code      string `gorm:"not null"`
	ExpiresAt time.Time
	CreatedAt time.Time
}
