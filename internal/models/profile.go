package models

import (
	"bytes"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile section keys as they appear in API payloads.
const (
	SectionPersonalInfo              = "personalInfo"
	SectionFamilyBackground          = "familyBackground"
	SectionAcademicBackground        = "academicBackground"
	SectionWorkExperience            = "workExperience"
	SectionTargetProgram             = "targetProgram"
	SectionFutureCareerPlans         = "futureCareerPlans"
	SectionFinancialInfo             = "financialInfo"
	SectionParentsDetails            = "parentsDetails"
	SectionBusinessOwnership         = "businessOwnership"
	SectionTravelingCompanion        = "travelingCompanion"
	SectionStrongFamilyBonds         = "strongFamilyBonds"
	SectionLanguageProficiency       = "languageProficiency"
	SectionExtracurricularActivities = "extracurricularActivities"
	SectionPreviousVisaHistory       = "previousVisaHistory"
	SectionSponsorshipDetails        = "sponsorshipDetails"
	SectionAccommodationPlans        = "accommodationPlans"
	SectionSalaryExpectations        = "salaryExpectations"
	SectionUniversityRanking         = "universityRanking"
	SectionTuitionAndCosts           = "tuitionAndCosts"
	SectionProgramStructure          = "programStructure"
	SectionAdditionalCertifications  = "additionalCertifications"
	SectionFreelancingExperience     = "freelancingExperience"
	SectionWhyThisUniversity         = "whyThisUniversity"
	SectionCountryAdvantages         = "countryAdvantages"
	SectionAdditionalInfo            = "additionalInfo"
	SectionPassportNumber            = "passportNumber"
)

// SectionKeys lists every profile section in display order.
var SectionKeys = []string{
	SectionPersonalInfo,
	SectionFamilyBackground,
	SectionAcademicBackground,
	SectionWorkExperience,
	SectionTargetProgram,
	SectionFutureCareerPlans,
	SectionFinancialInfo,
	SectionParentsDetails,
	SectionBusinessOwnership,
	SectionTravelingCompanion,
	SectionStrongFamilyBonds,
	SectionLanguageProficiency,
	SectionExtracurricularActivities,
	SectionPreviousVisaHistory,
	SectionSponsorshipDetails,
	SectionAccommodationPlans,
	SectionSalaryExpectations,
	SectionUniversityRanking,
	SectionTuitionAndCosts,
	SectionProgramStructure,
	SectionAdditionalCertifications,
	SectionFreelancingExperience,
	SectionWhyThisUniversity,
	SectionCountryAdvantages,
	SectionAdditionalInfo,
	SectionPassportNumber,
}

// RequiredSectionKeys must be populated before a profile can be used for generation.
var RequiredSectionKeys = []string{
	SectionPersonalInfo,
	SectionAcademicBackground,
	SectionTargetProgram,
}

// IsSectionKey reports whether key names a profile section.
func IsSectionKey(key string) bool {
	for _, k := range SectionKeys {
		if k == key {
			return true
		}
	}
	return false
}

// StudentProfile is the per-(user, country) aggregate of onboarding sections.
// Each section is an independent jsonb column; writes overwrite whole sections.
type StudentProfile struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
	UserID              uint      `gorm:"not null;uniqueIndex:idx_student_profiles_user_country" json:"userId"`
	Country             Country   `gorm:"not null;uniqueIndex:idx_student_profiles_user_country" json:"country"`
	ProfileCompleteness int       `gorm:"not null;default:0" json:"profileCompleteness"`

	PersonalInfo              datatypes.JSON `gorm:"type:jsonb" json:"personalInfo"`
	FamilyBackground          datatypes.JSON `gorm:"type:jsonb" json:"familyBackground"`
	AcademicBackground        datatypes.JSON `gorm:"type:jsonb" json:"academicBackground"`
	WorkExperience            datatypes.JSON `gorm:"type:jsonb" json:"workExperience"`
	TargetProgram             datatypes.JSON `gorm:"type:jsonb" json:"targetProgram"`
	FutureCareerPlans         datatypes.JSON `gorm:"type:jsonb" json:"futureCareerPlans"`
	FinancialInfo             datatypes.JSON `gorm:"type:jsonb" json:"financialInfo"`
	ParentsDetails            datatypes.JSON `gorm:"type:jsonb" json:"parentsDetails"`
	BusinessOwnership         datatypes.JSON `gorm:"type:jsonb" json:"businessOwnership"`
	TravelingCompanion        datatypes.JSON `gorm:"type:jsonb" json:"travelingCompanion"`
	StrongFamilyBonds         datatypes.JSON `gorm:"type:jsonb" json:"strongFamilyBonds"`
	LanguageProficiency       datatypes.JSON `gorm:"type:jsonb" json:"languageProficiency"`
	ExtracurricularActivities datatypes.JSON `gorm:"type:jsonb" json:"extracurricularActivities"`
	PreviousVisaHistory       datatypes.JSON `gorm:"type:jsonb" json:"previousVisaHistory"`
	SponsorshipDetails        datatypes.JSON `gorm:"type:jsonb" json:"sponsorshipDetails"`
	AccommodationPlans        datatypes.JSON `gorm:"type:jsonb" json:"accommodationPlans"`
	SalaryExpectations        datatypes.JSON `gorm:"type:jsonb" json:"salaryExpectations"`
	UniversityRanking         datatypes.JSON `gorm:"type:jsonb" json:"universityRanking"`
	TuitionAndCosts           datatypes.JSON `gorm:"type:jsonb" json:"tuitionAndCosts"`
	ProgramStructure          datatypes.JSON `gorm:"type:jsonb" json:"programStructure"`
	AdditionalCertifications  datatypes.JSON `gorm:"type:jsonb" json:"additionalCertifications"`
	FreelancingExperience     datatypes.JSON `gorm:"type:jsonb" json:"freelancingExperience"`
	WhyThisUniversity         datatypes.JSON `gorm:"type:jsonb" json:"whyThisUniversity"`
	CountryAdvantages         datatypes.JSON `gorm:"type:jsonb" json:"countryAdvantages"`
	AdditionalInfo            datatypes.JSON `gorm:"type:jsonb" json:"additionalInfo"`

	// PassportNumber is stored encrypted.
	PassportNumber string `gorm:"type:text" json:"passportNumber,omitempty"`
}

func (p *StudentProfile) jsonSection(key string) *datatypes.JSON {
	switch key {
	case SectionPersonalInfo:
		return &p.PersonalInfo
	case SectionFamilyBackground:
		return &p.FamilyBackground
	case SectionAcademicBackground:
		return &p.AcademicBackground
	case SectionWorkExperience:
		return &p.WorkExperience
	case SectionTargetProgram:
		return &p.TargetProgram
	case SectionFutureCareerPlans:
		return &p.FutureCareerPlans
	case SectionFinancialInfo:
		return &p.FinancialInfo
	case SectionParentsDetails:
		return &p.ParentsDetails
	case SectionBusinessOwnership:
		return &p.BusinessOwnership
	case SectionTravelingCompanion:
		return &p.TravelingCompanion
	case SectionStrongFamilyBonds:
		return &p.StrongFamilyBonds
	case SectionLanguageProficiency:
		return &p.LanguageProficiency
	case SectionExtracurricularActivities:
		return &p.ExtracurricularActivities
	case SectionPreviousVisaHistory:
		return &p.PreviousVisaHistory
	case SectionSponsorshipDetails:
		return &p.SponsorshipDetails
	case SectionAccommodationPlans:
		return &p.AccommodationPlans
	case SectionSalaryExpectations:
		return &p.SalaryExpectations
	case SectionUniversityRanking:
		return &p.UniversityRanking
	case SectionTuitionAndCosts:
		return &p.TuitionAndCosts
	case SectionProgramStructure:
		return &p.ProgramStructure
	case SectionAdditionalCertifications:
		return &p.AdditionalCertifications
	case SectionFreelancingExperience:
		return &p.FreelancingExperience
	case SectionWhyThisUniversity:
		return &p.WhyThisUniversity
	case SectionCountryAdvantages:
		return &p.CountryAdvantages
	case SectionAdditionalInfo:
		return &p.AdditionalInfo
	}
	return nil
}

// Section returns the raw JSON stored for key, or nil when the section is empty.
func (p *StudentProfile) Section(key string) json.RawMessage {
	if key == SectionPassportNumber {
		if p.PassportNumber == "" {
			return nil
		}
		raw, _ := json.Marshal(p.PassportNumber)
		return raw
	}
	field := p.jsonSection(key)
	if field == nil || isNullJSON(*field) {
		return nil
	}
	return json.RawMessage(*field)
}

// SetSection overwrites a whole section. Unknown keys are ignored and report false.
func (p *StudentProfile) SetSection(key string, raw json.RawMessage) bool {
	if key == SectionPassportNumber {
		var s string
		if isNullJSON(raw) {
			p.PassportNumber = ""
			return true
		}
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		p.PassportNumber = s
		return true
	}
	field := p.jsonSection(key)
	if field == nil {
		return false
	}
	if isNullJSON(raw) {
		*field = nil
		return true
	}
	*field = datatypes.JSON(bytes.Clone(raw))
	return true
}

// HasSection reports whether key holds a non-empty value.
func (p *StudentProfile) HasSection(key string) bool {
	raw := p.Section(key)
	if raw == nil {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	return !bytes.Equal(trimmed, []byte("{}")) && !bytes.Equal(trimmed, []byte("[]")) && !bytes.Equal(trimmed, []byte(`""`))
}

// BeforeSave encrypts the passport number.
func (p *StudentProfile) BeforeSave(tx *gorm.DB) error {
	var err error
	p.PassportNumber, err = encryptValue(p.PassportNumber)
	return err
}

// AfterSave restores the plaintext passport number on the in-memory value.
func (p *StudentProfile) AfterSave(tx *gorm.DB) error {
	var err error
	p.PassportNumber, err = decryptValue(p.PassportNumber)
	return err
}

// AfterFind decrypts the passport number.
func (p *StudentProfile) AfterFind(tx *gorm.DB) error {
	var err error
	p.PassportNumber, err = decryptValue(p.PassportNumber)
	return err
}

func isNullJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// RefreshCompleteness recomputes ProfileCompleteness as the rounded percentage
// of populated sections out of all SectionKeys, core sections and passport
// number included, and returns it.
func (p *StudentProfile) RefreshCompleteness() int {
	populated := 0
	for _, key := range SectionKeys {
		if p.HasSection(key) {
			populated++
		}
	}
	p.ProfileCompleteness = (populated*100 + len(SectionKeys)/2) / len(SectionKeys)
	return p.ProfileCompleteness
}
