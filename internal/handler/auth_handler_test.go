package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/handler"
	"github.com/noah-isme/codepractice-api/internal/service"
)

type stubAuthService struct {
	response dto.AuthResponse
	user     dto.UserResponse
	err      error
	meID     uint
}

func (s *stubAuthService) Register(context.Context, dto.RegisterRequest) (dto.AuthResponse, error) {
	return s.response, s.err
}

func (s *stubAuthService) Login(context.Context, dto.LoginRequest) (dto.AuthResponse, error) {
	return s.response, s.err
}

func (s *stubAuthService) Me(_ context.Context, userID uint) (dto.UserResponse, error) {
	s.meID = userID
	return s.user, s.err
}

func authApp(svc *stubAuthService, protect fiber.Handler) *fiber.App {
	app := fiber.New()
	handler.NewAuthHandler(svc, validator.New(), zerolog.Nop()).Register(app.Group("/api/v1/auth"), protect)
	return app
}

func TestAuthRegisterCreatesAccount(t *testing.T) {
	svc := &stubAuthService{response: dto.AuthResponse{
		Token:     "jwt",
		ExpiresAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		User:      dto.UserResponse{ID: 1, Username: "ada", Email: "ada@example.com", Role: "user"},
	}}
	app := authApp(svc, asUser(1, "user"))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "ada", "email": "ada@example.com", "password": "hunter22",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	var data dto.AuthResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, "jwt", data.Token)
	require.Equal(t, "ada", data.User.Username)
}

func TestAuthRegisterValidation(t *testing.T) {
	app := authApp(&stubAuthService{}, asUser(1, "user"))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "ad", "email": "nope", "password": "123",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, "min", body.Details["Username"])
	require.Equal(t, "email", body.Details["Email"])
}

func TestAuthErrorMapping(t *testing.T) {
	login := map[string]string{"email": "ada@example.com", "password": "hunter22"}

	resp, err := authApp(&stubAuthService{err: service.ErrInvalidCredentials}, asUser(1, "user")).
		Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/login", login))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	register := map[string]string{"username": "ada", "email": "ada@example.com", "password": "hunter22"}
	resp, err = authApp(&stubAuthService{err: service.ErrEmailTaken}, asUser(1, "user")).
		Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", register))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestAuthMeUsesProtectedIdentity(t *testing.T) {
	svc := &stubAuthService{user: dto.UserResponse{ID: 9, Username: "grace"}}
	app := authApp(svc, asUser(9, "user"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(9), svc.meID)

	blocked := authApp(svc, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusUnauthorized) })
	resp, err = blocked.Test(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
