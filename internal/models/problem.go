package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Problem difficulties.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// TestCase is a hidden input/expected-output pair used to judge a submission.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

// StarterCode is the editor template shown for a language.
type StarterCode struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Problem is a practice question in the catalog.
type Problem struct {
	ID          uint                             `gorm:"primaryKey" json:"id"`
	Slug        string                           `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Title       string                           `gorm:"size:255;uniqueIndex;not null" json:"title"`
	Description string                           `gorm:"type:text" json:"description"`
	Topic       string                           `gorm:"size:128;index;not null" json:"topic"`
	Difficulty  string                           `gorm:"size:16;index;not null" json:"difficulty"`
	Hints       datatypes.JSONSlice[string]      `json:"hints"`
	StarterCode datatypes.JSONSlice[StarterCode] `json:"starterCode"`
	TestCases   datatypes.JSONSlice[TestCase]    `json:"testCases"`
	CreatedAt   time.Time                        `json:"createdAt"`
	UpdatedAt   time.Time                        `json:"updatedAt"`
}

// IsValidDifficulty reports whether value is one of the known difficulties.
func IsValidDifficulty(value string) bool {
	switch value {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// NormalizeDifficulty maps case-insensitive input onto the canonical spelling.
func NormalizeDifficulty(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	default:
		return strings.TrimSpace(value)
	}
}
