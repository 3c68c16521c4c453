package letters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/generator"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/profile"
	"github.com/jimdaga/sop-studio/internal/prompts"
	"github.com/jimdaga/sop-studio/internal/quota"
	"github.com/jimdaga/sop-studio/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *store.MemoryStore
	gen     *generator.StubGenerator
	svc     *Service
	user    *models.User
	profile *models.StudentProfile
}

func newFixture(t *testing.T, generated, limit int, guard *quota.Guard) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	canada := models.CountryCanada
	user := &models.User{
		Email:            "jane@example.com",
		OnboardingStatus: models.OnboardingCompleted,
		TargetCountry:    &canada,
		LettersGenerated: generated,
		LettersLimit:     limit,
	}
	st.PutUser(user)

	p := &models.StudentProfile{UserID: user.ID, Country: canada}
	p.SetSection(models.SectionPersonalInfo, json.RawMessage(`{"fullName":"Jane Doe"}`))
	p.SetSection(models.SectionAcademicBackground, json.RawMessage(`{"highestQualification":"BSc","institution":"KU"}`))
	p.SetSection(models.SectionTargetProgram, json.RawMessage(`{"programName":"MEng","university":"UBC"}`))
	require.NoError(t, st.CreateProfile(context.Background(), p))

	registry, err := prompts.Default()
	require.NoError(t, err)
	gen := generator.NewStubGenerator()
	gen.Response = "Dear Visa Officer,\n\nI am  writing to apply."

	return &fixture{
		store:   st,
		gen:     gen,
		svc:     NewService(st, profile.NewService(st), registry, gen, guard),
		user:    user,
		profile: p,
	}
}

func (f *fixture) freshUser(t *testing.T) *models.User {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	return u
}

func TestGenerateConsumesLastUnitOfQuota(t *testing.T) {
	f := newFixture(t, 2, 3, nil)
	ctx := context.Background()

	result, err := f.svc.Generate(ctx, f.freshUser(t), GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	require.NoError(t, err)

	assert.Equal(t, 0, result.RemainingGenerations)
	assert.Equal(t, 8, result.Letter.WordCount)
	assert.Equal(t, "Dear Visa Officer,\n\nI am  writing to apply.", result.Letter.Content)
	assert.Equal(t, "stub", result.Letter.ModelUsed)
	assert.Equal(t, models.CountryCanada, result.Letter.Country)
	assert.Contains(t, result.Letter.Title, "UBC")
	assert.Equal(t, 3, f.freshUser(t).LettersGenerated)

	_, err = f.svc.Generate(ctx, f.freshUser(t), GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperror.Status(err))
	assert.Contains(t, err.Error(), "upgrade")
	assert.Len(t, f.gen.Calls(), 1)
}

func TestGenerateRejectsStaleUserAtWrite(t *testing.T) {
	f := newFixture(t, 2, 3, nil)
	ctx := context.Background()
	stale := f.freshUser(t)

	_, err := f.svc.Generate(ctx, stale, GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	require.NoError(t, err)

	// the in-memory user still shows one remaining; the store does not
	_, err = f.svc.Generate(ctx, stale, GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	assert.ErrorIs(t, err, apperror.ErrQuotaExceeded)

	letters, err := f.store.ListLetters(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, letters, 1)
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t, 0, 3, nil)
	ctx := context.Background()
	user := f.freshUser(t)

	_, err := f.svc.Generate(ctx, user, GenerateRequest{})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))
	assert.Len(t, appErr.Details, 2)

	_, err = f.svc.Generate(ctx, user, GenerateRequest{LetterType: "poem", ProfileID: f.profile.ID})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.Generate(ctx, user, GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID + 99})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.Generate(ctx, nil, GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	assert.Empty(t, f.gen.Calls())
}

func TestGenerateRejectsOtherUsersProfile(t *testing.T) {
	f := newFixture(t, 0, 3, nil)
	other := &models.User{Email: "other@example.com", LettersLimit: 3}
	f.store.PutUser(other)

	_, err := f.svc.Generate(context.Background(), other, GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGenerateRequiresCompleteProfile(t *testing.T) {
	f := newFixture(t, 0, 3, nil)
	ctx := context.Background()
	f.profile.SetSection(models.SectionTargetProgram, nil)
	require.NoError(t, f.store.SaveProfile(ctx, f.profile))

	_, err := f.svc.Generate(ctx, f.freshUser(t), GenerateRequest{LetterType: models.LetterFinancial, ProfileID: f.profile.ID})
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, err.Error(), "targetProgram")
}

func TestGenerateUpstreamFailureStoresNothing(t *testing.T) {
	f := newFixture(t, 0, 3, nil)
	ctx := context.Background()

	f.gen.Err = errors.New("openai api error: Incorrect API key provided: sk-live-123")
	_, err := f.svc.Generate(ctx, f.freshUser(t), GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	require.ErrorIs(t, err, apperror.ErrUpstream)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Failed to generate letter", appErr.Message)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "The AI service is unavailable, please try again later", appErr.Details[0].Message)
	assert.NotContains(t, appErr.Details[0].Message, "sk-live-123")

	f.gen.Err = nil
	f.gen.Response = " "
	_, err = f.svc.Generate(ctx, f.freshUser(t), GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	require.ErrorIs(t, err, apperror.ErrUpstream)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AI generated empty response", appErr.Details[0].Message)

	f.gen.Err = fmt.Errorf("openai request failed: %w", context.DeadlineExceeded)
	_, err = f.svc.Generate(ctx, f.freshUser(t), GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "The AI service took too long to respond", appErr.Details[0].Message)

	letters, err := f.store.ListLetters(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, letters)
	assert.Equal(t, 0, f.freshUser(t).LettersGenerated)
}

func TestGenerateRecordsElapsedTime(t *testing.T) {
	f := newFixture(t, 0, 3, nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	f.svc.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 1500 * time.Millisecond)
	}

	result, err := f.svc.Generate(context.Background(), f.freshUser(t), GenerateRequest{LetterType: models.LetterStudyPlan, ProfileID: f.profile.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), result.Letter.GenerationTime)
	assert.Equal(t, 2, result.RemainingGenerations)
}

func TestGenerateHonoursGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	guard, err := quota.NewGuard("redis://"+mr.Addr(), quota.Options{Limit: 1, Window: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = guard.Close() })

	f := newFixture(t, 0, 10, guard)
	ctx := context.Background()
	req := GenerateRequest{LetterType: models.LetterExplanation, ProfileID: f.profile.ID}

	_, err = f.svc.Generate(ctx, f.freshUser(t), req)
	require.NoError(t, err)
	assert.False(t, mr.Exists("sopstudio:lock:generate:1"), "lock released after generation")

	_, err = f.svc.Generate(ctx, f.freshUser(t), req)
	assert.ErrorIs(t, err, apperror.ErrRateLimited)
}

func TestGenerateRejectsConcurrentGeneration(t *testing.T) {
	mr := miniredis.RunT(t)
	guard, err := quota.NewGuard("redis://"+mr.Addr(), quota.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = guard.Close() })

	f := newFixture(t, 0, 10, guard)
	ctx := context.Background()

	release, err := guard.Acquire(ctx, f.user.ID)
	require.NoError(t, err)
	defer release()

	_, err = f.svc.Generate(ctx, f.freshUser(t), GenerateRequest{LetterType: models.LetterSOP, ProfileID: f.profile.ID})
	require.ErrorIs(t, err, apperror.ErrRateLimited)
	assert.Contains(t, err.Error(), "already being generated")
}
