package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/store"
)

// Service reads and writes a user's StudentProfile.
type Service struct {
	store store.Store
}

// NewService creates a profile service backed by st.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func requireCountry(user *models.User) (models.Country, error) {
	if user.TargetCountry == nil {
		return "", apperror.ValidationField("targetCountry", "Please select a target country first")
	}
	return *user.TargetCountry, nil
}

// Get returns the user's profile for their target country.
func (s *Service) Get(ctx context.Context, user *models.User) (*models.StudentProfile, error) {
	country, err := requireCountry(user)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(ctx, user.ID, country)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("Profile")
	}
	return p, err
}

// Create makes the profile for the user's target country. personalInfo is required.
func (s *Service) Create(ctx context.Context, user *models.User, sections map[string]json.RawMessage) (*models.StudentProfile, error) {
	country, err := requireCountry(user)
	if err != nil {
		return nil, err
	}
	if _, ok := sections[models.SectionPersonalInfo]; !ok {
		return nil, apperror.ValidationField(models.SectionPersonalInfo, "personalInfo is required to create a profile")
	}
	if err := validate(sections); err != nil {
		return nil, err
	}

	p := &models.StudentProfile{UserID: user.ID, Country: country}
	for key, raw := range sections {
		p.SetSection(key, raw)
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, store.ErrProfileExists) {
			return nil, apperror.Validation("A profile already exists for this country")
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return p, nil
}

// Update overwrites only the provided sections after validating each one.
func (s *Service) Update(ctx context.Context, user *models.User, sections map[string]json.RawMessage) (*models.StudentProfile, error) {
	if len(sections) == 0 {
		return nil, apperror.Validation("No profile sections provided")
	}
	if err := validate(sections); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, user)
	if err != nil {
		return nil, err
	}
	for key, raw := range sections {
		p.SetSection(key, raw)
	}
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// Typed loads a profile owned by userID and parses it for generation.
func (s *Service) Typed(ctx context.Context, userID, profileID uint) (*Typed, error) {
	p, err := s.store.GetProfileByID(ctx, profileID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("Profile")
	}
	if err != nil {
		return nil, err
	}
	return Parse(p)
}

func validate(sections map[string]json.RawMessage) error {
	fieldErrors, err := ValidateSections(sections)
	if err != nil {
		return err
	}
	if len(fieldErrors) > 0 {
		return apperror.Validation("Invalid profile data", fieldErrors...)
	}
	return nil
}
