package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jimdaga/sop-studio/internal/crypto"
	"github.com/jimdaga/sop-studio/internal/database"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var (
	pgOnce      sync.Once
	pgDB        *gorm.DB
	pgContainer testcontainers.Container
	pgErr       error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if pgDB != nil {
		_ = database.Close(pgDB)
	}
	if pgContainer != nil {
		_ = pgContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

// startPostgres runs one migrated Postgres container for the whole package.
func startPostgres(ctx context.Context) (*gorm.DB, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "sop",
			"POSTGRES_PASSWORD": "sop",
			"POSTGRES_DB":       "sop_studio_test",
		},
		// postgres logs readiness once for the init server and once for the real one
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	pgContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get postgres host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get postgres port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://sop:sop@%s:%s/sop_studio_test?sslmode=disable", host, port.Port())
	db, err := database.Init(dsn, "warn")
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// newGormStore returns a GormStore over empty tables, skipping when Docker is unavailable.
func newGormStore(t *testing.T) (*GormStore, *gorm.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres-backed test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	pgOnce.Do(func() {
		pgDB, pgErr = startPostgres(context.Background())
	})
	require.NoError(t, pgErr)

	require.NoError(t, pgDB.Exec("TRUNCATE generated_letters, student_profiles, auth_identities, users RESTART IDENTITY CASCADE").Error)
	return NewGormStore(pgDB), pgDB
}

func createUser(t *testing.T, db *gorm.DB, email string, generated, limit int) *models.User {
	t.Helper()
	canada := models.CountryCanada
	u := &models.User{
		Email:            email,
		OnboardingStatus: models.OnboardingProfileCreation,
		TargetCountry:    &canada,
		LettersGenerated: generated,
		LettersLimit:     limit,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createProfile(t *testing.T, s *GormStore, userID uint) *models.StudentProfile {
	t.Helper()
	p := &models.StudentProfile{UserID: userID, Country: models.CountryCanada}
	p.SetSection(models.SectionPersonalInfo, json.RawMessage(`{"fullName":"Jane Doe"}`))
	require.NoError(t, s.CreateProfile(context.Background(), p))
	return p
}

func newLetter(userID, profileID uint, content string) *models.GeneratedLetter {
	return &models.GeneratedLetter{
		UserID:     userID,
		ProfileID:  profileID,
		LetterType: models.LetterSOP,
		Country:    models.CountryCanada,
		Title:      "Statement of Purpose",
		Content:    content,
		WordCount:  len(strings.Fields(content)),
	}
}

func TestGormCreateLetterStopsAtLimit(t *testing.T) {
	s, db := newGormStore(t)
	ctx := context.Background()
	u := createUser(t, db, "quota@example.com", 2, 3)
	p := createProfile(t, s, u.ID)

	updated, err := s.CreateLetter(ctx, newLetter(u.ID, p.ID, "first draft"))
	require.NoError(t, err)
	assert.Equal(t, 3, updated.LettersGenerated)
	assert.Equal(t, 0, updated.RemainingGenerations())

	_, err = s.CreateLetter(ctx, newLetter(u.ID, p.ID, "second draft"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	letters, err := s.ListLetters(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, letters, 1)

	stored, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.LettersGenerated)
}

func TestGormConcurrentCreateLetterNeverExceedsLimit(t *testing.T) {
	s, db := newGormStore(t)
	ctx := context.Background()
	u := createUser(t, db, "race@example.com", 0, 3)
	p := createProfile(t, s, u.ID)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateLetter(ctx, newLetter(u.ID, p.ID, fmt.Sprintf("draft %d", i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	}
	assert.Equal(t, 3, succeeded)

	stored, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.LettersGenerated)
}

func TestGormLettersAreOwnerScoped(t *testing.T) {
	s, db := newGormStore(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com", 0, 5)
	other := createUser(t, db, "other@example.com", 0, 5)
	p := createProfile(t, s, owner.ID)

	letter := newLetter(owner.ID, p.ID, "my statement")
	_, err := s.CreateLetter(ctx, letter)
	require.NoError(t, err)

	_, err = s.GetLetter(ctx, letter.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	fav := true
	_, err = s.UpdateLetter(ctx, letter.ID, other.ID, LetterUpdate{IsFavorite: &fav})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteLetter(ctx, letter.ID, other.ID), ErrNotFound)

	rating := 5
	updated, err := s.UpdateLetter(ctx, letter.ID, owner.ID, LetterUpdate{IsFavorite: &fav, FeedbackRating: &rating})
	require.NoError(t, err)
	assert.True(t, updated.IsFavorite)
	require.NotNil(t, updated.FeedbackRating)
	assert.Equal(t, 5, *updated.FeedbackRating)

	require.NoError(t, s.DeleteLetter(ctx, letter.ID, owner.ID))
	_, err = s.GetLetter(ctx, letter.ID, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.GeneratedLetter{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGormApplyOnboardingStepWithoutProfileWritesNothing(t *testing.T) {
	s, db := newGormStore(t)
	ctx := context.Background()
	u := createUser(t, db, "steps@example.com", 0, 3)

	_, _, err := s.ApplyOnboardingStep(ctx, StepUpdate{
		UserID:   u.ID,
		Country:  models.CountryCanada,
		Sections: map[string]json.RawMessage{models.SectionAcademicBackground: json.RawMessage(`{"degree":"BSc"}`)},
		Step:     3,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.StudentProfile{}).Count(&count).Error)
	assert.Zero(t, count)

	stored, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.OnboardingStep)
}

func TestGormApplyOnboardingStepKeepsCompletedStatus(t *testing.T) {
	s, db := newGormStore(t)
	ctx := context.Background()
	u := createUser(t, db, "done@example.com", 0, 3)

	_, user, err := s.ApplyOnboardingStep(ctx, StepUpdate{
		UserID:          u.ID,
		Country:         models.CountryCanada,
		CreateIfMissing: true,
		Sections:        map[string]json.RawMessage{models.SectionPersonalInfo: json.RawMessage(`{"fullName":"Jane"}`)},
		Step:            8,
		Status:          models.OnboardingCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OnboardingCompleted, user.OnboardingStatus)

	profile, user, err := s.ApplyOnboardingStep(ctx, StepUpdate{
		UserID:   u.ID,
		Country:  models.CountryCanada,
		Sections: map[string]json.RawMessage{models.SectionFinancialInfo: json.RawMessage(`{"fundingSource":"family"}`)},
		Step:     7,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OnboardingCompleted, user.OnboardingStatus)
	assert.Equal(t, 7, user.OnboardingStep)
	assert.JSONEq(t, `{"fundingSource":"family"}`, string(profile.Section(models.SectionFinancialInfo)))
	assert.JSONEq(t, `{"fullName":"Jane"}`, string(profile.Section(models.SectionPersonalInfo)))
}

func TestGormPassportNumberEncryptedAtRest(t *testing.T) {
	s, db := newGormStore(t)
	ctx := context.Background()
	require.NoError(t, models.InitEncryption(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("g", 32)))))
	u := createUser(t, db, "passport@example.com", 0, 3)

	p := &models.StudentProfile{UserID: u.ID, Country: models.CountryCanada, PassportNumber: "PA1234567"}
	require.NoError(t, s.CreateProfile(ctx, p))
	assert.Equal(t, "PA1234567", p.PassportNumber)

	var raw string
	require.NoError(t, db.Raw("SELECT passport_number FROM student_profiles WHERE id = ?", p.ID).Scan(&raw).Error)
	assert.True(t, crypto.IsEncrypted(raw))
	assert.NotContains(t, raw, "PA1234567")

	got, err := s.GetProfile(ctx, u.ID, models.CountryCanada)
	require.NoError(t, err)
	assert.Equal(t, "PA1234567", got.PassportNumber)

	// saving the decrypted profile again must not double-encrypt
	require.NoError(t, s.SaveProfile(ctx, got))
	again, err := s.GetProfileByID(ctx, p.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "PA1234567", again.PassportNumber)
}

func TestGormCreateProfileRejectsDuplicate(t *testing.T) {
	s, db := newGormStore(t)
	ctx := context.Background()
	u := createUser(t, db, "dup@example.com", 0, 3)
	createProfile(t, s, u.ID)

	err := s.CreateProfile(ctx, &models.StudentProfile{UserID: u.ID, Country: models.CountryCanada})
	assert.ErrorIs(t, err, ErrProfileExists)
}

func TestGormUpsertLoginUser(t *testing.T) {
	s, _ := newGormStore(t)
	ctx := context.Background()

	u, err := s.UpsertLoginUser(ctx, LoginIdentity{
		Email:          "login@example.com",
		Name:           "Login User",
		Provider:       "google",
		ProviderUserID: "g-123",
		AccessToken:    "token",
		LettersLimit:   4,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OnboardingCountrySelection, u.OnboardingStatus)
	assert.Equal(t, 4, u.LettersLimit)

	again, err := s.UpsertLoginUser(ctx, LoginIdentity{
		Email:          "login@example.com",
		Name:           "Renamed",
		Provider:       "google",
		ProviderUserID: "g-123",
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	stored, err := s.GetUserByEmail(ctx, "login@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.Equal(t, 4, stored.LettersLimit)
}
