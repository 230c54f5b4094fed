package authcore

import (
	"time"

	"github.com/google/uuid"
)

// SanitizedAccount is the caller-facing projection of an Account. It must
// never include the credential hash, the two-factor secret, or the reset and
// verification token digests.
type SanitizedAccount struct {
	ID               uuid.UUID     `json:"id"`
	Email            string        `json:"email"`
	Username         string        `json:"username"`
	FirstName        string        `json:"first_name,omitempty"`
	LastName         string        `json:"last_name,omitempty"`
	Phone            string        `json:"phone,omitempty"`
	Country          string        `json:"country,omitempty"`
	DateOfBirth      string        `json:"date_of_birth,omitempty"`
	Address          string        `json:"address,omitempty"`
	Status           AccountStatus `json:"status"`
	KYCStatus        string        `json:"kyc_status,omitempty"`
	KYCLevel         int           `json:"kyc_level,omitempty"`
	Tier             Tier          `json:"tier"`
	Roles            []string      `json:"roles"`
	Permissions      []string      `json:"permissions,omitempty"`
	TwoFactorEnabled bool          `json:"two_factor_enabled"`
	ReferralCode     string        `json:"referral_code,omitempty"`
	LastLoginAt      *time.Time    `json:"last_login_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Sanitize projects an account for external callers.
func Sanitize(a *Account) SanitizedAccount {
	return SanitizedAccount{
		ID:               a.ID,
		Email:            a.Email,
		Username:         a.Username,
		FirstName:        a.Profile.FirstName,
		LastName:         a.Profile.LastName,
		Phone:            a.Profile.Phone,
		Country:          a.Profile.Country,
		DateOfBirth:      a.Profile.DateOfBirth,
		Address:          a.Profile.Address,
		Status:           a.Status,
		KYCStatus:        a.KYCStatus,
		KYCLevel:         a.KYCLevel,
		Tier:             a.Tier,
		Roles:            append([]string(nil), a.Roles...),
		Permissions:      append([]string(nil), a.Permissions...),
		TwoFactorEnabled: a.TwoFactorEnabled,
		ReferralCode:     a.ReferralCode,
		LastLoginAt:      a.LastLoginAt,
		CreatedAt:        a.CreatedAt,
	}
}
