package models

import (
	"strings"
	"time"
)

// LetterType identifies which kind of document was generated.
type LetterType string

const (
	LetterExplanation LetterType = "explanation"
	LetterStudyPlan   LetterType = "study_plan"
	LetterFinancial   LetterType = "financial"
	LetterSOP         LetterType = "sop"
)

// LetterTypes lists all supported letter types.
var LetterTypes = []LetterType{LetterExplanation, LetterStudyPlan, LetterFinancial, LetterSOP}

// Valid reports whether t is a supported letter type.
func (t LetterType) Valid() bool {
	for _, lt := range LetterTypes {
		if lt == t {
			return true
		}
	}
	return false
}

// GeneratedLetter is one stored AI generation result.
type GeneratedLetter struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	UserID         uint       `gorm:"not null;index" json:"userId"`
	ProfileID      uint       `gorm:"not null;index" json:"profileId"`
	LetterType     LetterType `gorm:"not null" json:"letterType"`
	Country        Country    `gorm:"not null" json:"country"`
	Title          string     `gorm:"not null" json:"title"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	ModelUsed      string     `json:"modelUsed"`
	GenerationTime int64      `json:"generationTime"` // milliseconds
	WordCount      int        `gorm:"not null;default:0" json:"wordCount"`
	FeedbackRating *int       `json:"feedbackRating"`
	IsFavorite     bool       `gorm:"not null;default:false" json:"isFavorite"`

	Profile StudentProfile `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// CountWords counts whitespace-delimited tokens.
func CountWords(content string) int {
	return len(strings.Fields(content))
}
