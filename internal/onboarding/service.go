package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/profile"
	"github.com/jimdaga/sop-studio/internal/store"
)

// whyThisCountry is accepted in step data but never stored as-is; its free
// text is hoisted into the whyThisUniversity and countryAdvantages sections.
const whyThisCountryKey = "whyThisCountry"

// ProfileRoute is where the client continues after choosing a country.
const ProfileRoute = "/onboarding/profile"

// StepResult is the outcome of one profile-step submission.
type StepResult struct {
	Profile  *models.StudentProfile  `json:"profile"`
	Step     int                     `json:"step"`
	Status   models.OnboardingStatus `json:"onboardingStatus"`
	Redirect string                  `json:"redirect,omitempty"`
}

// Status summarises a user's onboarding progress.
type Status struct {
	OnboardingStatus models.OnboardingStatus `json:"onboardingStatus"`
	Step             int                     `json:"onboardingStep"`
	StepName         string                  `json:"stepName,omitempty"`
	TotalSteps       int                     `json:"totalSteps"`
	TargetCountry    *models.Country         `json:"targetCountry"`
	HasProfile       bool                    `json:"hasProfile"`
	Completeness     int                     `json:"profileCompleteness"`
	Redirect         string                  `json:"redirect"`
}

// Service applies onboarding transitions.
type Service struct {
	store store.Store
}

// NewService creates an onboarding service backed by st.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// SelectCountry records the destination and restarts the profile wizard.
func (s *Service) SelectCountry(ctx context.Context, user *models.User, country models.Country) (*models.User, error) {
	if !country.Valid() {
		return nil, apperror.ValidationField("country", "country must be CANADA or AUSTRALIA")
	}
	updated, err := s.store.SetTargetCountry(ctx, user.ID, country)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("failed to set target country: %w", err)
	}
	return updated, nil
}

// SubmitStep merges one wizard step into the profile and advances the step
// counter. Only the personal step may create the profile.
func (s *Service) SubmitStep(ctx context.Context, user *models.User, step string, data map[string]json.RawMessage) (*StepResult, error) {
	if user.TargetCountry == nil {
		return nil, apperror.ValidationField("targetCountry", "Please select a target country first")
	}
	country := *user.TargetCountry

	if step == StepPersonal {
		if raw, ok := data[models.SectionPersonalInfo]; !ok || isNull(raw) {
			return nil, apperror.ValidationField(models.SectionPersonalInfo, "personalInfo is required to start your profile")
		}
	}

	sections, err := hoistWhyThisCountry(data)
	if err != nil {
		return nil, err
	}
	fieldErrors, err := profile.ValidateSections(sections)
	if err != nil {
		return nil, err
	}
	if len(fieldErrors) > 0 {
		return nil, apperror.Validation("Invalid profile data", fieldErrors...)
	}

	number := StepNumber(step)
	// Only the last step moves the status; revisiting earlier steps after
	// completion must not send the user back into onboarding.
	var status models.OnboardingStatus
	if step == StepAdditional {
		status = models.OnboardingCompleted
	}

	p, updated, err := s.store.ApplyOnboardingStep(ctx, store.StepUpdate{
		UserID:          user.ID,
		Country:         country,
		CreateIfMissing: step == StepPersonal,
		Sections:        sections,
		Step:            number,
		Status:          status,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.Validation("Profile must be started with personal information")
		}
		return nil, fmt.Errorf("failed to save onboarding step %q: %w", step, err)
	}

	result := &StepResult{Profile: p, Step: updated.OnboardingStep, Status: updated.OnboardingStatus}
	if status == models.OnboardingCompleted {
		result.Redirect = country.DashboardPath()
	}
	return result, nil
}

// Status reports the user's onboarding progress and where they belong.
func (s *Service) Status(ctx context.Context, user *models.User) (*Status, error) {
	st := &Status{
		OnboardingStatus: user.OnboardingStatus,
		Step:             user.OnboardingStep,
		StepName:         StepName(user.OnboardingStep),
		TotalSteps:       len(Steps),
		TargetCountry:    user.TargetCountry,
		Redirect:         user.HomePath(),
	}
	if user.TargetCountry == nil {
		return st, nil
	}
	p, err := s.store.GetProfile(ctx, user.ID, *user.TargetCountry)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	default:
		st.HasProfile = true
		st.Completeness = p.ProfileCompleteness
	}
	return st, nil
}

// hoistWhyThisCountry copies the nested free-text answers into their own
// sections and drops the whyThisCountry wrapper.
func hoistWhyThisCountry(data map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	sections := make(map[string]json.RawMessage, len(data))
	for key, raw := range data {
		if key != whyThisCountryKey {
			sections[key] = raw
		}
	}

	raw, ok := data[whyThisCountryKey]
	if !ok || isNull(raw) {
		return sections, nil
	}
	var why struct {
		WhyThisUniversity string `json:"whyThisUniversity"`
		WhyThisCountry    string `json:"whyThisCountry"`
	}
	if err := json.Unmarshal(raw, &why); err != nil {
		return nil, apperror.ValidationField(whyThisCountryKey, "whyThisCountry must be an object of text answers")
	}
	if why.WhyThisUniversity != "" {
		sections[models.SectionWhyThisUniversity] = textSection(why.WhyThisUniversity)
	}
	if why.WhyThisCountry != "" {
		sections[models.SectionCountryAdvantages] = textSection(why.WhyThisCountry)
	}
	return sections, nil
}

func textSection(text string) json.RawMessage {
	out, _ := json.Marshal(map[string]string{"text": text})
	return out
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
