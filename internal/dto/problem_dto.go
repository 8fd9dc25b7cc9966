package dto

import "github.com/noah-isme/codepractice-api/internal/models"

// ProblemFilter defines query parameters for listing problems.
type ProblemFilter struct {
	Topic      string `query:"topic"`
	Difficulty string `query:"difficulty"`
	Search     string `query:"search"`
	Page       int    `query:"page"`
	PageSize   int    `query:"page_size"`
}

// Pagination describes pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
}

// StarterCode is the editor template for one language.
type StarterCode struct {
	Language string `json:"language" validate:"required,oneof=javascript python java cpp"`
	Code     string `json:"code" validate:"required"`
}

// TestCase is a hidden input/expected-output pair.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput" validate:"required"`
}

// ProblemResponse represents a problem returned by the API. Hidden test cases are never included.
type ProblemResponse struct {
	ID            uint          `json:"id"`
	Slug          string        `json:"slug"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Topic         string        `json:"topic"`
	Difficulty    string        `json:"difficulty"`
	Hints         []string      `json:"hints"`
	StarterCode   []StarterCode `json:"starterCode"`
	TestCaseCount int           `json:"testCaseCount"`
}

// ProblemListResponse wraps problems and pagination metadata.
type ProblemListResponse struct {
	Items      []ProblemResponse `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

// TopicResponse counts catalog problems per topic.
type TopicResponse struct {
	Topic string `json:"topic"`
	Count int64  `json:"count"`
}

// ProblemCreateRequest is the admin payload for adding a problem.
type ProblemCreateRequest struct {
	Title       string        `json:"title" validate:"required,min=3,max=255"`
	Description string        `json:"description"`
	Topic       string        `json:"topic" validate:"required,max=128"`
	Difficulty  string        `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
	Hints       []string      `json:"hints"`
	StarterCode []StarterCode `json:"starterCode" validate:"dive"`
	TestCases   []TestCase    `json:"testCases" validate:"required,min=1,dive"`
}

// NewProblemResponse builds a response DTO from the model.
func NewProblemResponse(problem models.Problem) ProblemResponse {
	hints := make([]string, 0, len(problem.Hints))
	hints = append(hints, problem.Hints...)

	starter := make([]StarterCode, 0, len(problem.StarterCode))
	for _, item := range problem.StarterCode {
		starter = append(starter, StarterCode{Language: item.Language, Code: item.Code})
	}

	return ProblemResponse{
		ID:            problem.ID,
		Slug:          problem.Slug,
		Title:         problem.Title,
		Description:   problem.Description,
		Topic:         problem.Topic,
		Difficulty:    problem.Difficulty,
		Hints:         hints,
		StarterCode:   starter,
		TestCaseCount: len(problem.TestCases),
	}
}

// NewProblemListResponse builds a list response from models and pagination meta.
func NewProblemListResponse(problems []models.Problem, pagination Pagination) ProblemListResponse {
	items := make([]ProblemResponse, 0, len(problems))
	for _, problem := range problems {
		items = append(items, NewProblemResponse(problem))
	}

	return ProblemListResponse{
		Items:      items,
		Pagination: pagination,
	}
}
