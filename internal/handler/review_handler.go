package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/revizorlab/revizor-api/internal/dto"
	"github.com/revizorlab/revizor-api/internal/review"
	"github.com/revizorlab/revizor-api/internal/service"
	"github.com/revizorlab/revizor-api/internal/utils"
	"github.com/revizorlab/revizor-api/internal/verdict"
	"github.com/revizorlab/revizor-api/pkg/extract"
)

// ReviewHandler manages review session endpoints.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler builds a review handler instance.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Post("", h.start)
	router.Get("/:id", h.get)
	router.Post("/:id/messages", h.message)
	router.Post("/:id/document", h.upload)
}

func (h *ReviewHandler) start(c *fiber.Ctx) error {
	var payload dto.SessionStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.StartSession(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session ready", session)
}

func (h *ReviewHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	session, err := h.service.GetSession(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session retrieved", session)
}

func (h *ReviewHandler) message(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SessionMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	reply, err := h.service.HandleMessage(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "message processed", reply)
}

func (h *ReviewHandler) upload(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	handle, err := file.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file cannot be read")
	}
	defer handle.Close()

	data, err := io.ReadAll(handle)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file cannot be read")
	}

	reply, err := h.service.HandleUpload(c.Context(), id, file.Filename, data)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "document processed", reply)
}

// handleError maps review failures onto HTTP statuses. Judge and verdict
// failures mean the trigger can simply be retried: the session stage was not
// touched.
func (h *ReviewHandler) handleError(c *fiber.Ctx, err error) error {
	log := requestLogger(h.logger, c)

	var extractionErr *extract.ExtractionError

	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, review.ErrInvalidStageForUpload):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, review.ErrEmptyDocument):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &extractionErr):
		log.Warn().Err(err).Msg("document extraction failed")
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, review.ErrJudgeUnavailable):
		log.Error().Err(err).Msg("judge unavailable")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "the judge is temporarily unavailable, please retry")
	case errors.Is(err, verdict.ErrMalformedReply), errors.Is(err, verdict.ErrSchemaViolation):
		log.Error().Err(err).Msg("judge verdict rejected")
		return utils.SendError(c, fiber.StatusBadGateway, "the judge returned an unusable verdict, please retry")
	case errors.Is(err, review.ErrCorruptMemory):
		log.Error().Err(err).Msg("session state corrupted")
		return utils.SendError(c, fiber.StatusInternalServerError, "session state is corrupted")
	default:
		log.Error().Err(err).Msg("review request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
