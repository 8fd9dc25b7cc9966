package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/service"
	"github.com/noah-isme/codepractice-api/internal/utils"
)

// UserHandler exposes per-user progress, stats and submission history.
type UserHandler struct {
	progress    service.ProgressService
	submissions service.SubmissionService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(progress service.ProgressService, submissions service.SubmissionService, validator *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		progress:    progress,
		submissions: submissions,
		validator:   validator,
		logger:      logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires the user routes; the router must be JWT protected.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/progress", h.getProgress)
	router.Put("/progress", h.updateProgress)
	router.Get("/stats", h.stats)
	router.Get("/submissions", h.history)
}

func (h *UserHandler) getProgress(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.progress.Progress(withRequestContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "progress retrieved", response)
}

func (h *UserHandler) updateProgress(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var payload dto.ProgressUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	response, err := h.progress.MarkSolved(withRequestContext(c), userID, payload.QuestionID)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "progress updated", response)
}

func (h *UserHandler) stats(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.progress.Stats(withRequestContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "stats retrieved", response)
}

func (h *UserHandler) history(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var query dto.SubmissionHistoryQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.submissions.History(withRequestContext(c), userID, query)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", response)
}

func (h *UserHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrProblemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("user operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
