// Package letters generates letters from a student profile and manages the
// stored results.
package letters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/generator"
	"github.com/jimdaga/sop-studio/internal/logging"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/profile"
	"github.com/jimdaga/sop-studio/internal/prompts"
	"github.com/jimdaga/sop-studio/internal/quota"
	"github.com/jimdaga/sop-studio/internal/store"
)

// GenerateRequest is the body of POST /api/generate-letter.
type GenerateRequest struct {
	LetterType models.LetterType `json:"letterType"`
	ProfileID  uint              `json:"profileId"`
}

// GenerateResult is returned after a letter is stored.
type GenerateResult struct {
	Letter               *models.GeneratedLetter `json:"letter"`
	RemainingGenerations int                     `json:"remainingGenerations"`
}

// Service runs letter generation and letter management.
type Service struct {
	store     store.Store
	profiles  *profile.Service
	prompts   *prompts.Registry
	generator generator.TextGenerator
	guard     *quota.Guard
	now       func() time.Time
}

// NewService wires the generation pipeline. guard may be nil.
func NewService(st store.Store, profiles *profile.Service, registry *prompts.Registry, gen generator.TextGenerator, guard *quota.Guard) *Service {
	return &Service{
		store:     st,
		profiles:  profiles,
		prompts:   registry,
		generator: gen,
		guard:     guard,
		now:       time.Now,
	}
}

// Generate produces one letter for user from one of their profiles and
// consumes one unit of quota. Nothing is stored when any step fails.
func (s *Service) Generate(ctx context.Context, user *models.User, req GenerateRequest) (*GenerateResult, error) {
	if user == nil {
		return nil, apperror.Unauthenticated()
	}
	logger := logging.FromContext(ctx).With("user_id", user.ID)

	if user.QuotaExhausted() {
		return nil, apperror.QuotaExceeded(user.LettersLimit)
	}

	var missing []apperror.FieldError
	if req.LetterType == "" {
		missing = append(missing, apperror.FieldError{Field: "letterType", Message: "letterType is required"})
	}
	if req.ProfileID == 0 {
		missing = append(missing, apperror.FieldError{Field: "profileId", Message: "profileId is required"})
	}
	if len(missing) > 0 {
		return nil, apperror.Validation("Missing required fields", missing...)
	}
	if !req.LetterType.Valid() {
		return nil, apperror.ValidationField("letterType", fmt.Sprintf("unsupported letter type %q", req.LetterType))
	}

	if _, err := s.store.GetProfileByID(ctx, req.ProfileID, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NotFound("Profile")
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	typed, err := s.profiles.Typed(ctx, user.ID, req.ProfileID)
	switch {
	case errors.Is(err, profile.ErrIncompleteProfile):
		return nil, apperror.Validation(fmt.Sprintf("Please complete your profile before generating letters (%v)", err))
	case err != nil:
		return nil, err
	case typed.ID != req.ProfileID:
		return nil, apperror.NotFound("Profile")
	}

	allowed, err := s.guard.Allow(ctx, user.ID)
	if err != nil {
		logger.Warn("Rate limiter unavailable, continuing", "error", err)
	} else if !allowed {
		return nil, apperror.RateLimited()
	}

	release, err := s.guard.Acquire(ctx, user.ID)
	switch {
	case errors.Is(err, quota.ErrBusy):
		return nil, apperror.GenerationInProgress()
	case err != nil:
		logger.Warn("Generation lock unavailable, continuing", "error", err)
	}
	defer release()

	prompt, err := s.prompts.Build(req.LetterType, typed)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	start := s.now()
	content, err := s.generator.GenerateText(ctx, prompt.System, prompt.User)
	elapsed := s.now().Sub(start)
	if err != nil {
		logger.Error("Letter generation failed",
			"letter_type", req.LetterType,
			"profile_id", req.ProfileID,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, apperror.Upstream(err, upstreamReason(err))
	}

	letter := &models.GeneratedLetter{
		UserID:         user.ID,
		ProfileID:      typed.ID,
		LetterType:     req.LetterType,
		Country:        typed.Country,
		Title:          prompt.Title,
		Content:        content,
		ModelUsed:      s.generator.Model(),
		GenerationTime: elapsed.Milliseconds(),
		WordCount:      models.CountWords(content),
	}
	updated, err := s.store.CreateLetter(ctx, letter)
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			return nil, apperror.QuotaExceeded(user.LettersLimit)
		}
		return nil, fmt.Errorf("failed to save letter: %w", err)
	}

	logger.Info("Letter generated",
		"letter_id", letter.ID,
		"letter_type", letter.LetterType,
		"model", letter.ModelUsed,
		"word_count", letter.WordCount,
		"duration_ms", letter.GenerationTime,
	)

	return &GenerateResult{Letter: letter, RemainingGenerations: updated.RemainingGenerations()}, nil
}

// upstreamReason turns a generator failure into text safe to show the user.
// Provider response bodies are only logged.
func upstreamReason(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, generator.ErrMissingAPIKey):
		return generator.ErrMissingAPIKey.Error()
	case errors.Is(err, generator.ErrEmptyResponse):
		return generator.ErrEmptyResponse.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "The AI service took too long to respond"
	default:
		return "The AI service is unavailable, please try again later"
	}
}
