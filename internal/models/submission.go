package models

import "time"

// SubmissionStatus is the final status recorded for an evaluation attempt.
type SubmissionStatus string

// Submission statuses. Pending exists for schema compatibility; evaluation only records terminal ones.
const (
	SubmissionStatusPending           SubmissionStatus = "Pending"
	SubmissionStatusAccepted          SubmissionStatus = "Accepted"
	SubmissionStatusWrongAnswer       SubmissionStatus = "Wrong Answer"
	SubmissionStatusRuntimeError      SubmissionStatus = "Runtime Error"
	SubmissionStatusCompilationError  SubmissionStatus = "Compilation Error"
	SubmissionStatusTimeLimitExceeded SubmissionStatus = "Time Limit Exceeded"
)

// Submission languages.
const (
	LanguageJavaScript = "javascript"
	LanguagePython     = "python"
	LanguageJava       = "java"
	LanguageCPP        = "cpp"
)

// Submission is an immutable record of one evaluation attempt.
type Submission struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_submissions_user_created,priority:1" json:"userId"`
	ProblemID uint             `gorm:"not null;index" json:"problemId"`
	Code      string           `gorm:"type:text;not null" json:"code"`
	Language  string           `gorm:"size:16;not null" json:"language"`
	Status    SubmissionStatus `gorm:"size:32;not null;index" json:"status"`
	Output    string           `gorm:"type:text" json:"output"`
	CreatedAt time.Time        `gorm:"index:idx_submissions_user_created,priority:2" json:"createdAt"`
	Problem   Problem          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// IsAccepted reports whether the submission passed every test case.
func (s Submission) IsAccepted() bool {
	return s.Status == SubmissionStatusAccepted
}
