package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/revizorlab/revizor-api/internal/dto"
	"github.com/revizorlab/revizor-api/internal/service"
	"github.com/revizorlab/revizor-api/internal/utils"
)

// StudentHandler manages student roster endpoints.
type StudentHandler struct {
	service service.StudentService
	logger  zerolog.Logger
}

func NewStudentHandler(service service.StudentService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	students, err := h.service.List(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	student, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	student, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *StudentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrLoginTaken):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("student request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
