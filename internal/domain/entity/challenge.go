package entity

import "time"

// CSRChallenge is a one-time enrollment token issued to a taxpayer during
// onboarding and consumed exactly once during CSR enrollment.
type CSRChallenge struct {
	TokenHash []byte
	CompanyID string
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// Expired reports whether the challenge can no longer be redeemed.
func (c CSRChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Usable reports whether the challenge has not been used and has not expired.
func (c CSRChallenge) Usable(now time.Time) bool {
	return c.UsedAt == nil && !c.Expired(now)
}
