// Package onboarding drives the country selection and the eight-step
// profile wizard that precedes letter generation.
package onboarding

// Step names in wizard order.
const (
	StepPersonal         = "personal"
	StepFamilyBackground = "family-background"
	StepAcademic         = "academic"
	StepWorkExperience   = "work-experience"
	StepTargetProgram    = "target-program"
	StepFuturePlans      = "future-plans"
	StepFinancial        = "financial"
	StepAdditional       = "additional"
)

// Steps lists the wizard steps in the order the client walks them.
var Steps = []string{
	StepPersonal,
	StepFamilyBackground,
	StepAcademic,
	StepWorkExperience,
	StepTargetProgram,
	StepFuturePlans,
	StepFinancial,
	StepAdditional,
}

// StepNumber maps a step name to its 1-based position. Unrecognised names map to 1.
func StepNumber(name string) int {
	for i, step := range Steps {
		if step == name {
			return i + 1
		}
	}
	return 1
}

// StepName is the inverse of StepNumber; 0 or out-of-range values return "".
func StepName(number int) string {
	if number < 1 || number > len(Steps) {
		return ""
	}
	return Steps[number-1]
}
