package model

import "time"

// Verification codes expire this long after they were last (re)generated.
const VerificationCodeTTL = 5 * time.Minute

// VerificationCode is the one-time code gating account activation. At most
// one row exists per user: regenerating overwrites the code value in place,
// and successful consumption hard-deletes the row.
type VerificationCode struct {
	Base
	Code   string `json:"code" gorm:"size:5;not null"`
	UserID uint   `json:"user_id" gorm:"not null;uniqueIndex"`
}

// ExpiresAt derives the expiry from the last update, so a refresh resets
// the timer without inserting a new row.
func (v *VerificationCode) ExpiresAt() time.Time {
	return v.UpdatedAt.Add(VerificationCodeTTL)
}

// IsExpired reports whether the code is no longer acceptable at the given time.
func (v *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt())
}
