package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codepractice-api/internal/dto"
)

type stubSubmissionService struct {
	runResponse    dto.RunResponse
	submitResponse dto.SubmitResponse
	history        []dto.SubmissionResponse
	err            error

	lastUserID uint
	lastSubmit dto.SubmitRequest
	lastRun    dto.RunRequest
	lastQuery  dto.SubmissionHistoryQuery
}

func (s *stubSubmissionService) Run(_ context.Context, payload dto.RunRequest) (dto.RunResponse, error) {
	s.lastRun = payload
	return s.runResponse, s.err
}

func (s *stubSubmissionService) Submit(_ context.Context, userID uint, payload dto.SubmitRequest) (dto.SubmitResponse, error) {
	s.lastUserID = userID
	s.lastSubmit = payload
	return s.submitResponse, s.err
}

func (s *stubSubmissionService) History(_ context.Context, userID uint, query dto.SubmissionHistoryQuery) ([]dto.SubmissionResponse, error) {
	s.lastUserID = userID
	s.lastQuery = query
	return s.history, s.err
}

type stubProgressService struct {
	stats      dto.UserStatsResponse
	solved     dto.SolvedProblemsResponse
	err        error
	lastUserID uint
	marked     uint
}

func (s *stubProgressService) Stats(_ context.Context, userID uint) (dto.UserStatsResponse, error) {
	s.lastUserID = userID
	return s.stats, s.err
}

func (s *stubProgressService) Progress(_ context.Context, userID uint) (dto.SolvedProblemsResponse, error) {
	s.lastUserID = userID
	return s.solved, s.err
}

func (s *stubProgressService) MarkSolved(_ context.Context, userID, problemID uint) (dto.SolvedProblemsResponse, error) {
	s.lastUserID = userID
	s.marked = problemID
	return s.solved, s.err
}

func (s *stubProgressService) RecordSolved(context.Context, uint, uint) (bool, error) {
	return false, s.err
}

func (s *stubProgressService) Invalidate(context.Context, uint) {}

// asUser authenticates every request as the given user.
func asUser(id uint, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		c.Locals("user_role", role)
		return c.Next()
	}
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
