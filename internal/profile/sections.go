package profile

// PersonalInfo is the applicant's identity section.
type PersonalInfo struct {
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
}

// MaritalStatus selects which family sub-shape applies.
type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "single"
	MaritalMarried  MaritalStatus = "married"
	MaritalDivorced MaritalStatus = "divorced"
	MaritalWidowed  MaritalStatus = "widowed"
)

// SpouseDetails is only meaningful when MaritalStatus is married.
type SpouseDetails struct {
	Name         string `json:"name"`
	Occupation   string `json:"occupation,omitempty"`
	Education    string `json:"education,omitempty"`
	Accompanying bool   `json:"accompanying,omitempty"`
}

type FamilyBackground struct {
	FatherName       string         `json:"fatherName,omitempty"`
	FatherOccupation string         `json:"fatherOccupation,omitempty"`
	MotherName       string         `json:"motherName,omitempty"`
	MotherOccupation string         `json:"motherOccupation,omitempty"`
	Siblings         int            `json:"siblings,omitempty"`
	MaritalStatus    MaritalStatus  `json:"maritalStatus,omitempty"`
	Spouse           *SpouseDetails `json:"spouseDetails,omitempty"`
	Children         int            `json:"children,omitempty"`
}

type AcademicBackground struct {
	HighestQualification string `json:"highestQualification"`
	Institution          string `json:"institution"`
	FieldOfStudy         string `json:"fieldOfStudy,omitempty"`
	GraduationYear       int    `json:"graduationYear,omitempty"`
	Grade                string `json:"grade,omitempty"`
	StudyGapYears        int    `json:"studyGapYears,omitempty"`
	StudyGapExplanation  string `json:"studyGapExplanation,omitempty"`
}

type Position struct {
	Company          string `json:"company"`
	Title            string `json:"title"`
	StartDate        string `json:"startDate,omitempty"`
	EndDate          string `json:"endDate,omitempty"`
	Responsibilities string `json:"responsibilities,omitempty"`
}

type WorkExperience struct {
	HasExperience bool       `json:"hasExperience"`
	TotalYears    float64    `json:"totalYears,omitempty"`
	Positions     []Position `json:"positions,omitempty"`
}

type TargetProgram struct {
	ProgramName string  `json:"programName"`
	University  string  `json:"university"`
	Level       string  `json:"level,omitempty"`
	Intake      string  `json:"intake,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	City        string  `json:"city,omitempty"`
	TuitionFee  float64 `json:"tuitionFee,omitempty"`
}

type FutureCareerPlans struct {
	ShortTermGoals      string `json:"shortTermGoals,omitempty"`
	LongTermGoals       string `json:"longTermGoals,omitempty"`
	ExpectedRole        string `json:"expectedRole,omitempty"`
	ExpectedEmployer    string `json:"expectedEmployer,omitempty"`
	ReturnToHomeCountry bool   `json:"returnToHomeCountry,omitempty"`
}

type FinancialInfo struct {
	FundingSource     string  `json:"fundingSource,omitempty"`
	SponsorName       string  `json:"sponsorName,omitempty"`
	SponsorRelation   string  `json:"sponsorRelation,omitempty"`
	AvailableFunds    float64 `json:"availableFunds,omitempty"`
	Currency          string  `json:"currency,omitempty"`
	ScholarshipAmount float64 `json:"scholarshipAmount,omitempty"`
}
