package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jimdaga/sop-studio/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const devUserEmail = "dev@sopstudio.local"

// SeedDevData populates the database with a fully onboarded development user,
// their Canadian profile and one sample letter.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	var existingUser models.User
	result := db.Where("email = ?", devUserEmail).First(&existingUser)
	if result.Error == nil {
		slog.Info("Seed data already exists, skipping")
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check seed data: %w", result.Error)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		canada := models.CountryCanada
		user := models.User{
			Email:            devUserEmail,
			Name:             "Dev Student",
			Role:             "user",
			OnboardingStatus: models.OnboardingCompleted,
			OnboardingStep:   8,
			TargetCountry:    &canada,
			SubscriptionTier: models.TierFree,
			LettersGenerated: 1,
			LettersLimit:     models.TierFree.LettersLimit(0),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		identity := models.AuthIdentity{
			UserID:         user.ID,
			Provider:       "google",
			ProviderUserID: "dev-google-id-12345",
			AccessToken:    "dev-access-token-placeholder",
			RefreshToken:   "dev-refresh-token-placeholder",
		}
		if err := tx.Create(&identity).Error; err != nil {
			return err
		}

		profile := models.StudentProfile{
			UserID:             user.ID,
			Country:            models.CountryCanada,
			PersonalInfo:       datatypes.JSON(`{"fullName":"Dev Student","dateOfBirth":"2000-04-12","nationality":"Nepali","email":"dev@sopstudio.local","city":"Kathmandu"}`),
			FamilyBackground:   datatypes.JSON(`{"fatherName":"Ram Student","fatherOccupation":"Teacher","motherName":"Sita Student","motherOccupation":"Shop owner","siblings":1,"maritalStatus":"single"}`),
			AcademicBackground: datatypes.JSON(`{"highestQualification":"Bachelor","institution":"Tribhuvan University","fieldOfStudy":"Computer Science","graduationYear":2022,"grade":"3.6 GPA"}`),
			WorkExperience:     datatypes.JSON(`{"hasExperience":true,"positions":[{"company":"Leapfrog","title":"Junior Developer","startDate":"2022-08","endDate":"2024-06"}]}`),
			TargetProgram:      datatypes.JSON(`{"programName":"Postgraduate Certificate in Cloud Computing","university":"Conestoga College","level":"Postgraduate Certificate","intake":"September 2025","city":"Waterloo"}`),
			FutureCareerPlans:  datatypes.JSON(`{"shortTermGoals":"Work as a cloud engineer","longTermGoals":"Lead an infrastructure team in Nepal","returnToHomeCountry":true}`),
			FinancialInfo:      datatypes.JSON(`{"fundingSource":"family","sponsorName":"Ram Student","sponsorRelation":"Father","availableFunds":45000,"currency":"CAD"}`),
			PassportNumber:     "PA1234567",
		}
		profile.RefreshCompleteness()
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		content := "## Statement of Purpose\n\nDear Visa Officer,\n\nI am writing to explain my plan to study cloud computing at Conestoga College."
		letter := models.GeneratedLetter{
			UserID:     user.ID,
			ProfileID:  profile.ID,
			LetterType: models.LetterSOP,
			Country:    models.CountryCanada,
			Title:      "Statement of Purpose - Conestoga College",
			Content:    content,
			ModelUsed:  "seed",
			WordCount:  models.CountWords(content),
		}
		if err := tx.Create(&letter).Error; err != nil {
			return err
		}

		slog.Info("Seeded dev data: 1 user, 1 auth identity, 1 profile, 1 letter")
		return nil
	})
}
