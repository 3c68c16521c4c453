package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jimdaga/sop-studio/internal/models"
)

// ErrIncompleteProfile is returned when a required section is missing.
var ErrIncompleteProfile = errors.New("profile is incomplete")

// Typed is a parsed view of a StudentProfile. Required sections are values;
// optional core sections are nil when absent. Sections keeps the raw JSON of
// every populated section, including the enrichment ones.
type Typed struct {
	ID           uint
	UserID       uint
	Country      models.Country
	Completeness int

	PersonalInfo       PersonalInfo
	AcademicBackground AcademicBackground
	TargetProgram      TargetProgram
	FamilyBackground   *FamilyBackground
	WorkExperience     *WorkExperience
	FutureCareerPlans  *FutureCareerPlans
	FinancialInfo      *FinancialInfo

	Sections map[string]json.RawMessage
}

// Parse builds the typed view. It fails when personalInfo, academicBackground
// or targetProgram is missing, or when any core section does not decode.
func Parse(p *models.StudentProfile) (*Typed, error) {
	var missing []string
	for _, key := range models.RequiredSectionKeys {
		if !p.HasSection(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteProfile, strings.Join(missing, ", "))
	}

	t := &Typed{
		ID:           p.ID,
		UserID:       p.UserID,
		Country:      p.Country,
		Completeness: p.ProfileCompleteness,
		Sections:     make(map[string]json.RawMessage),
	}
	for _, key := range models.SectionKeys {
		if p.HasSection(key) {
			t.Sections[key] = p.Section(key)
		}
	}

	if err := decode(p, models.SectionPersonalInfo, &t.PersonalInfo); err != nil {
		return nil, err
	}
	if err := decode(p, models.SectionAcademicBackground, &t.AcademicBackground); err != nil {
		return nil, err
	}
	if err := decode(p, models.SectionTargetProgram, &t.TargetProgram); err != nil {
		return nil, err
	}
	if err := decodeOptional(p, models.SectionFamilyBackground, &t.FamilyBackground); err != nil {
		return nil, err
	}
	if err := decodeOptional(p, models.SectionWorkExperience, &t.WorkExperience); err != nil {
		return nil, err
	}
	if err := decodeOptional(p, models.SectionFutureCareerPlans, &t.FutureCareerPlans); err != nil {
		return nil, err
	}
	if err := decodeOptional(p, models.SectionFinancialInfo, &t.FinancialInfo); err != nil {
		return nil, err
	}
	return t, nil
}

func decode(p *models.StudentProfile, key string, out any) error {
	if err := json.Unmarshal(p.Section(key), out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return nil
}

func decodeOptional[T any](p *models.StudentProfile, key string, out **T) error {
	if !p.HasSection(key) {
		return nil
	}
	var v T
	if err := decode(p, key, &v); err != nil {
		return err
	}
	*out = &v
	return nil
}
