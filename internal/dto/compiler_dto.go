package dto

import (
	"time"

	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/pkg/judge"
)

// RunRequest is the payload for an ungraded run.
type RunRequest struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language" validate:"required"`
	Stdin    string `json:"stdin"`
}

// JudgeStatus mirrors the judge's status object.
type JudgeStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// RunResponse is the raw verdict returned by the judge.
type RunResponse struct {
	Token         string      `json:"token"`
	Status        JudgeStatus `json:"status"`
	Stdout        *string     `json:"stdout"`
	Stderr        *string     `json:"stderr"`
	CompileOutput *string     `json:"compile_output"`
	Message       *string     `json:"message"`
	Time          *string     `json:"time"`
	Memory        *int64      `json:"memory"`
}

// NewRunResponse converts a judge verdict into its API shape.
func NewRunResponse(verdict judge.Verdict) RunResponse {
	return RunResponse{
		Token:         verdict.Token,
		Status:        JudgeStatus{ID: verdict.Status.ID, Description: verdict.Status.Description},
		Stdout:        verdict.Stdout,
		Stderr:        verdict.Stderr,
		CompileOutput: verdict.CompileOutput,
		Message:       verdict.Message,
		Time:          verdict.Time,
		Memory:        verdict.Memory,
	}
}

// SubmitRequest is the payload for a graded submission.
type SubmitRequest struct {
	QuestionID uint   `json:"questionId" validate:"required,gt=0"`
	Code       string `json:"code" validate:"required"`
	Language   string `json:"language" validate:"required"`
}

// SubmitResponse reports the verdict of a graded submission.
type SubmitResponse struct {
	Status         models.SubmissionStatus `json:"status"`
	Message        string                  `json:"message"`
	SubmissionID   uint                    `json:"submissionId"`
	FailedTestCase int                     `json:"failedTestCase,omitempty"`
	Input          *string                 `json:"input,omitempty"`
	Output         *string                 `json:"output,omitempty"`
	Expected       *string                 `json:"expected,omitempty"`
}

// SubmissionResponse is one entry of a user's submission history.
type SubmissionResponse struct {
	ID           uint                    `json:"id"`
	ProblemID    uint                    `json:"problemId"`
	ProblemTitle string                  `json:"problemTitle"`
	Language     string                  `json:"language"`
	Status       models.SubmissionStatus `json:"status"`
	Output       string                  `json:"output,omitempty"`
	Code         string                  `json:"code,omitempty"`
	CreatedAt    time.Time               `json:"createdAt"`
}

// NewSubmissionResponse builds a history DTO from a model.
func NewSubmissionResponse(submission models.Submission, includeSource bool) SubmissionResponse {
	response := SubmissionResponse{
		ID:           submission.ID,
		ProblemID:    submission.ProblemID,
		ProblemTitle: submission.Problem.Title,
		Language:     submission.Language,
		Status:       submission.Status,
		Output:       submission.Output,
		CreatedAt:    submission.CreatedAt,
	}

	if includeSource {
		response.Code = submission.Code
	}

	return response
}

// SubmissionHistoryQuery narrows a user's submission history.
type SubmissionHistoryQuery struct {
	QuestionID uint `query:"question_id"`
	Limit      int  `query:"limit"`
}
