package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/revizorlab/revizor-api/internal/dto"
	"github.com/revizorlab/revizor-api/internal/service"
	"github.com/revizorlab/revizor-api/internal/utils"
)

// AssignmentHandler manages assignment CRUD endpoints.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	assignments, err := h.service.List(c.Context(), c.Query("search"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment deleted", nil)
}

func (h *AssignmentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("assignment request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
