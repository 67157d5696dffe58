package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/generator"
	"github.com/nearyou-pipeline/internal/pkg/errors"
	"github.com/nearyou-pipeline/internal/pkg/utils"
	"github.com/nearyou-pipeline/internal/pkg/validator"
)

// GenerateHandler serves the message generation endpoint.
type GenerateHandler struct {
	service *generator.Service
	logger  *zap.Logger
}

func NewGenerateHandler(service *generator.Service, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		service: service,
		logger:  logger,
	}
}

// Generate godoc
// @Summary Generate a personalised message
// @Description Returns a promotional message for a user near a POI, served from cache when the fingerprint matches
// @Tags Generation
// @Accept json
// @Produce json
// @Param request body generator.GenerateRequest true "User profile and nearby POI"
// @Success 200 {object} generator.GenerateResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /generate [post]
func (h *GenerateHandler) Generate(c *fiber.Ctx) error {
	var req generator.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason(err.Error()))
	}
	if err := validator.Validate(req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason(err.Error()))
	}

	profile := &domain.UserProfile{
		Age:        req.User.Age,
		Profession: req.User.Profession,
		Interests:  req.User.Interests,
	}
	shop := &domain.Shop{
		ShopName: req.POI.Name,
		Category: req.POI.Category,
	}

	message, cached, err := h.service.Generate(c.Context(), profile, shop, req.POI.Description)
	if err != nil {
		h.logger.Error("Generation failed", zap.Error(err))
		return utils.SendError(c, errors.ErrGenerationFailed)
	}

	return c.JSON(generator.GenerateResponse{
		Message: message,
		Cached:  cached,
	})
}

// Stats godoc
// @Summary Cache statistics
// @Description Hit/miss counters since start plus cache backend info
// @Tags Generation
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /cache/stats [get]
func (h *GenerateHandler) Stats(c *fiber.Ctx) error {
	return utils.SendSuccess(c, h.service.Stats(c.Context()), nil)
}
