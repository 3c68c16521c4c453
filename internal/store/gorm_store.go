package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jimdaga/sop-studio/internal/models"
	"gorm.io/gorm"
)

// GormStore implements Store on top of GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open database handle. Schema is managed by migrations.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// GetUser returns a user by ID.
func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UpsertLoginUser creates the user on first login, otherwise refreshes their
// name and login time, and records the provider identity.
func (s *GormStore) UpsertLoginUser(ctx context.Context, identity LoginIdentity) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Where("email = ?", identity.Email).First(&user)
		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			user = models.User{
				Email:            identity.Email,
				Name:             identity.Name,
				AvatarURL:        identity.AvatarURL,
				OnboardingStatus: models.OnboardingCountrySelection,
				SubscriptionTier: models.TierFree,
				LettersLimit:     models.TierFree.LettersLimit(identity.LettersLimit),
				LastLoginAt:      &now,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
		case result.Error != nil:
			return fmt.Errorf("failed to lookup user: %w", result.Error)
		default:
			if err := tx.Model(&user).Updates(map[string]interface{}{
				"name":          identity.Name,
				"avatar_url":    identity.AvatarURL,
				"last_login_at": now,
			}).Error; err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
		}

		if identity.ProviderUserID == "" {
			return nil
		}

		var authIdentity models.AuthIdentity
		result = tx.Where("provider = ? AND provider_user_id = ?", identity.Provider, identity.ProviderUserID).First(&authIdentity)
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to lookup auth identity: %w", result.Error)
		}
		authIdentity.UserID = user.ID
		authIdentity.Provider = identity.Provider
		authIdentity.ProviderUserID = identity.ProviderUserID
		authIdentity.AccessToken = identity.AccessToken
		authIdentity.RefreshToken = identity.RefreshToken
		authIdentity.TokenExpiry = identity.ExpiresAt
		if err := tx.Save(&authIdentity).Error; err != nil {
			return fmt.Errorf("failed to save auth identity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetTargetCountry records the destination and moves the user into profile creation.
func (s *GormStore) SetTargetCountry(ctx context.Context, userID uint, country models.Country) (*models.User, error) {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"target_country":    country,
		"onboarding_status": models.OnboardingProfileCreation,
		"onboarding_step":   0,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, userID)
}

// GetProfile returns the user's profile for a country.
func (s *GormStore) GetProfile(ctx context.Context, userID uint, country models.Country) (*models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := s.db.WithContext(ctx).Where("user_id = ? AND country = ?", userID, country).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// GetProfileByID returns a profile only if it belongs to userID.
func (s *GormStore) GetProfileByID(ctx context.Context, id, userID uint) (*models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// CreateProfile inserts a new profile.
func (s *GormStore) CreateProfile(ctx context.Context, profile *models.StudentProfile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.StudentProfile{}).
			Where("user_id = ? AND country = ?", profile.UserID, profile.Country).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrProfileExists
		}
		profile.RefreshCompleteness()
		return tx.Create(profile).Error
	})
}

// SaveProfile overwrites every column of an existing profile.
func (s *GormStore) SaveProfile(ctx context.Context, profile *models.StudentProfile) error {
	profile.RefreshCompleteness()
	return s.db.WithContext(ctx).Save(profile).Error
}

// ApplyOnboardingStep merges the step's sections and advances the user's step counter.
func (s *GormStore) ApplyOnboardingStep(ctx context.Context, update StepUpdate) (*models.StudentProfile, *models.User, error) {
	var (
		profile models.StudentProfile
		user    models.User
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND country = ?", update.UserID, update.Country).First(&profile)
		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			if !update.CreateIfMissing {
				return ErrNotFound
			}
			profile = models.StudentProfile{UserID: update.UserID, Country: update.Country}
		case result.Error != nil:
			return result.Error
		}

		applySections(&profile, update.Sections)
		if err := tx.Save(&profile).Error; err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		userUpdates := map[string]interface{}{"onboarding_step": update.Step}
		if update.Status != "" {
			userUpdates["onboarding_status"] = update.Status
		}
		if err := tx.Model(&models.User{}).Where("id = ?", update.UserID).Updates(userUpdates).Error; err != nil {
			return fmt.Errorf("failed to advance onboarding step: %w", err)
		}
		return notFound(tx.First(&user, update.UserID).Error)
	})
	if err != nil {
		return nil, nil, err
	}
	return &profile, &user, nil
}

// CreateLetter inserts the letter and increments letters_generated only while
// it is still below letters_limit.
func (s *GormStore) CreateLetter(ctx context.Context, letter *models.GeneratedLetter) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ? AND letters_generated < letters_limit", letter.UserID).
			UpdateColumn("letters_generated", gorm.Expr("letters_generated + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to consume quota: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrQuotaExceeded
		}
		if err := tx.Create(letter).Error; err != nil {
			return fmt.Errorf("failed to store letter: %w", err)
		}
		return tx.First(&user, letter.UserID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetLetter returns a letter only if it belongs to userID.
func (s *GormStore) GetLetter(ctx context.Context, id, userID uint) (*models.GeneratedLetter, error) {
	var letter models.GeneratedLetter
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&letter).Error; err != nil {
		return nil, notFound(err)
	}
	return &letter, nil
}

// ListLetters returns all of a user's letters, newest first.
func (s *GormStore) ListLetters(ctx context.Context, userID uint) ([]models.GeneratedLetter, error) {
	var letters []models.GeneratedLetter
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&letters).Error; err != nil {
		return nil, err
	}
	return letters, nil
}

// UpdateLetter applies the non-nil fields of update.
func (s *GormStore) UpdateLetter(ctx context.Context, id, userID uint, update LetterUpdate) (*models.GeneratedLetter, error) {
	updates := map[string]interface{}{}
	if update.Content != nil {
		updates["content"] = *update.Content
	}
	if update.WordCount != nil {
		updates["word_count"] = *update.WordCount
	}
	if update.IsFavorite != nil {
		updates["is_favorite"] = *update.IsFavorite
	}
	if update.FeedbackRating != nil {
		updates["feedback_rating"] = *update.FeedbackRating
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&models.GeneratedLetter{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetLetter(ctx, id, userID)
}

// DeleteLetter permanently removes a letter.
func (s *GormStore) DeleteLetter(ctx context.Context, id, userID uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.GeneratedLetter{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
