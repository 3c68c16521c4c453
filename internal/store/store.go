// Package store persists users, student profiles and generated letters.
// Every profile and letter operation is scoped to its owning user.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jimdaga/sop-studio/internal/models"
)

var (
	// ErrNotFound is returned when a record is absent or owned by another user.
	ErrNotFound = errors.New("record not found")
	// ErrQuotaExceeded is returned when a letter would push lettersGenerated past lettersLimit.
	ErrQuotaExceeded = errors.New("letter quota exceeded")
	// ErrProfileExists is returned when creating a second profile for the same (user, country).
	ErrProfileExists = errors.New("profile already exists")
)

// LoginIdentity is what the identity provider tells us about a signed-in user.
type LoginIdentity struct {
	Email          string
	Name           string
	AvatarURL      string
	Provider       string
	ProviderUserID string
	AccessToken    string
	RefreshToken   string
	ExpiresAt      *time.Time
	// LettersLimit applies only when the user is created.
	LettersLimit int
}

// StepUpdate describes one onboarding step submission.
type StepUpdate struct {
	UserID  uint
	Country models.Country
	// CreateIfMissing allows the profile to be created (the "personal" step only).
	CreateIfMissing bool
	Sections        map[string]json.RawMessage
	Step            int
	// Status replaces the user's onboarding status when set; empty leaves it unchanged.
	Status models.OnboardingStatus
}

// LetterUpdate holds the mutable letter fields; nil fields are left untouched.
type LetterUpdate struct {
	Content        *string
	WordCount      *int
	IsFavorite     *bool
	FeedbackRating *int
}

// Store defines persistence operations for the application.
type Store interface {
	// users
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertLoginUser(ctx context.Context, identity LoginIdentity) (*models.User, error)
	SetTargetCountry(ctx context.Context, userID uint, country models.Country) (*models.User, error)

	// profiles
	GetProfile(ctx context.Context, userID uint, country models.Country) (*models.StudentProfile, error)
	GetProfileByID(ctx context.Context, id, userID uint) (*models.StudentProfile, error)
	CreateProfile(ctx context.Context, profile *models.StudentProfile) error
	SaveProfile(ctx context.Context, profile *models.StudentProfile) error
	// ApplyOnboardingStep merges sections into the profile and advances the
	// user's onboarding progress in one transaction.
	ApplyOnboardingStep(ctx context.Context, update StepUpdate) (*models.StudentProfile, *models.User, error)

	// letters
	// CreateLetter stores the letter and consumes one unit of the owner's quota
	// in one transaction, returning the updated user.
	CreateLetter(ctx context.Context, letter *models.GeneratedLetter) (*models.User, error)
	GetLetter(ctx context.Context, id, userID uint) (*models.GeneratedLetter, error)
	ListLetters(ctx context.Context, userID uint) ([]models.GeneratedLetter, error)
	UpdateLetter(ctx context.Context, id, userID uint, update LetterUpdate) (*models.GeneratedLetter, error)
	DeleteLetter(ctx context.Context, id, userID uint) error
}

func applySections(profile *models.StudentProfile, sections map[string]json.RawMessage) {
	for key, raw := range sections {
		profile.SetSection(key, raw)
	}
	profile.RefreshCompleteness()
}

func applyLetterUpdate(letter *models.GeneratedLetter, update LetterUpdate) {
	if update.Content != nil {
		letter.Content = *update.Content
	}
	if update.WordCount != nil {
		letter.WordCount = *update.WordCount
	}
	if update.IsFavorite != nil {
		letter.IsFavorite = *update.IsFavorite
	}
	if update.FeedbackRating != nil {
		rating := *update.FeedbackRating
		letter.FeedbackRating = &rating
	}
}
