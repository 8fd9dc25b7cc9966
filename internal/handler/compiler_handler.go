package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/service"
	"github.com/noah-isme/codepractice-api/internal/utils"
	"github.com/noah-isme/codepractice-api/pkg/judge"
)

// CompilerHandler exposes the run and submit endpoints.
type CompilerHandler struct {
	service   service.SubmissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCompilerHandler constructs the handler.
func NewCompilerHandler(service service.SubmissionService, validator *validator.Validate, logger zerolog.Logger) *CompilerHandler {
	return &CompilerHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "compiler_handler").Logger(),
	}
}

// Register wires the run and submit endpoints behind their route guards.
// Submit guards must authenticate the caller.
func (h *CompilerHandler) Register(router fiber.Router, runGuards, submitGuards []fiber.Handler) {
	router.Post("/run", append(runGuards, h.run)...)
	router.Post("/submit", append(submitGuards, h.submit)...)
}

func (h *CompilerHandler) run(c *fiber.Ctx) error {
	var payload dto.RunRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	response, err := h.service.Run(withRequestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "code executed", response)
}

func (h *CompilerHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Submit(withRequestContext(c), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, response.Message, response)
}

func (h *CompilerHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, judge.ErrUnsupportedLanguage):
		return utils.SendError(c, fiber.StatusBadRequest, "language not supported")
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrProblemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrNoTestCases):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "question has no test cases")
	case errors.Is(err, judge.ErrTimeout):
		requestLogger(h.logger, c).Warn().Err(err).Msg("judge timed out")
		return utils.SendError(c, fiber.StatusGatewayTimeout, "execution timed out, try again")
	case errors.Is(err, judge.ErrTransport), errors.Is(err, judge.ErrJudgeInternal):
		requestLogger(h.logger, c).Error().Err(err).Msg("judge unavailable")
		return utils.SendError(c, fiber.StatusBadGateway, "code execution service unavailable")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("compiler operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
