package models

import (
	"time"

	"gorm.io/gorm"
)

// OnboardingStatus tracks where a user is in the onboarding flow.
type OnboardingStatus string

const (
	OnboardingCountrySelection OnboardingStatus = "COUNTRY_SELECTION"
	OnboardingProfileCreation  OnboardingStatus = "PROFILE_CREATION"
	OnboardingCompleted        OnboardingStatus = "COMPLETED"
)

// Country is a supported study destination.
type Country string

const (
	CountryCanada    Country = "CANADA"
	CountryAustralia Country = "AUSTRALIA"
)

// Valid reports whether c is a supported destination.
func (c Country) Valid() bool {
	return c == CountryCanada || c == CountryAustralia
}

// DisplayName is the human-readable country name.
func (c Country) DisplayName() string {
	switch c {
	case CountryCanada:
		return "Canada"
	case CountryAustralia:
		return "Australia"
	default:
		return string(c)
	}
}

// DashboardPath is the country-specific dashboard route.
func (c Country) DashboardPath() string {
	if c == CountryCanada {
		return "/canada/dashboard"
	}
	return "/australia/dashboard"
}

// SubscriptionTier determines a user's letter quota.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "FREE"
	TierPro     SubscriptionTier = "PRO"
	TierPremium SubscriptionTier = "PREMIUM"
)

// LettersLimit returns the quota ceiling for the tier. freeLimit overrides the
// FREE tier default when positive.
func (t SubscriptionTier) LettersLimit(freeLimit int) int {
	switch t {
	case TierPro:
		return 25
	case TierPremium:
		return 100
	default:
		if freeLimit > 0 {
			return freeLimit
		}
		return 3
	}
}

// User is an identity-linked account with onboarding state and generation quota.
type User struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
	Email            string           `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null" json:"email"`
	Name             string           `gorm:"not null;default:''" json:"name"`
	AvatarURL        string           `gorm:"column:avatar_url" json:"avatarUrl,omitempty"`
	Role             string           `gorm:"not null;default:'user'" json:"role"` // enum: 'user' or 'admin'
	OnboardingStatus OnboardingStatus `gorm:"not null;default:'COUNTRY_SELECTION'" json:"onboardingStatus"`
	OnboardingStep   int              `gorm:"not null;default:0" json:"onboardingStep"`
	TargetCountry    *Country         `json:"targetCountry"`
	SubscriptionTier SubscriptionTier `gorm:"not null;default:'FREE'" json:"subscriptionTier"`
	LettersGenerated int              `gorm:"not null;default:0" json:"lettersGenerated"`
	LettersLimit     int              `gorm:"not null;default:3" json:"lettersLimit"`
	LastLoginAt      *time.Time       `json:"lastLoginAt,omitempty"`

	// Associations
	AuthIdentities []AuthIdentity    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Profiles       []StudentProfile  `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Letters        []GeneratedLetter `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// RemainingGenerations is the number of letters the user may still generate.
func (u *User) RemainingGenerations() int {
	remaining := u.LettersLimit - u.LettersGenerated
	if remaining < 0 {
		return 0
	}
	return remaining
}

// QuotaExhausted reports whether another generation must be refused.
func (u *User) QuotaExhausted() bool {
	return u.LettersGenerated >= u.LettersLimit
}

// HomePath is where the dashboard routes the user for their onboarding state.
func (u *User) HomePath() string {
	switch {
	case u.OnboardingStatus == OnboardingCompleted && u.TargetCountry != nil:
		return u.TargetCountry.DashboardPath()
	case u.TargetCountry == nil || u.OnboardingStatus == OnboardingCountrySelection:
		return "/onboarding/country"
	default:
		return "/onboarding/profile"
	}
}
