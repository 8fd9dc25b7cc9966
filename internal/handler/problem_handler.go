package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/service"
	"github.com/noah-isme/codepractice-api/internal/utils"
)

// ProblemHandler exposes the question catalog.
type ProblemHandler struct {
	service service.ProblemService
	logger  zerolog.Logger
}

// NewProblemHandler constructs the handler.
func NewProblemHandler(service service.ProblemService, logger zerolog.Logger) *ProblemHandler {
	return &ProblemHandler{
		service: service,
		logger:  logger.With().Str("component", "problem_handler").Logger(),
	}
}

// Register wires the catalog routes. createGuards run before the create endpoint.
func (h *ProblemHandler) Register(router fiber.Router, createGuards ...fiber.Handler) {
	router.Get("", h.list)
	router.Get("/daily", h.daily)
	router.Get("/topics", h.topics)
	router.Get("/:id", h.get)
	router.Post("", append(createGuards, h.create)...)
}

func (h *ProblemHandler) list(c *fiber.Ctx) error {
	var filter dto.ProblemFilter
	if err := c.QueryParser(&filter); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.List(withRequestContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, response.Items, "questions retrieved", response.Pagination)
}

func (h *ProblemHandler) daily(c *fiber.Ctx) error {
	response, err := h.service.Daily(withRequestContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "daily question retrieved", response)
}

func (h *ProblemHandler) topics(c *fiber.Ctx) error {
	response, err := h.service.Topics(withRequestContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "topics retrieved", response)
}

func (h *ProblemHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Get(withRequestContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "question retrieved", response)
}

func (h *ProblemHandler) create(c *fiber.Ctx) error {
	var payload dto.ProblemCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	// Difficulty is normalised by the service before validation.
	response, err := h.service.Create(withRequestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", response)
}

func (h *ProblemHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrInvalidProblem):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrProblemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrCatalogEmpty):
		return utils.SendError(c, fiber.StatusNotFound, "no questions available")
	case errors.Is(err, service.ErrProblemExists):
		return utils.SendError(c, fiber.StatusConflict, "question already exists")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("question operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
