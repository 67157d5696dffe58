package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/pkg/errors"
	"github.com/nearyou-pipeline/internal/pkg/utils"
	"github.com/nearyou-pipeline/internal/pkg/validator"
	"github.com/nearyou-pipeline/internal/query"
)

// Accepted layouts for start_time/end_time body fields.
var queryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimeseriesBody is the wire format of POST /timeseries.
type TimeseriesBody struct {
	Metric      string `json:"metric" validate:"required"`
	Granularity string `json:"granularity" validate:"required,oneof=minute hour day month"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	ShopID      string `json:"shop_id"`
}

// AggregateBody is the wire format of POST /aggregate.
type AggregateBody struct {
	Metric     string   `json:"metric" validate:"required"`
	Dimensions []string `json:"dimensions" validate:"required,min=1"`
	StartTime  string   `json:"start_time" validate:"required"`
	EndTime    string   `json:"end_time" validate:"required"`
}

// UserActivityBody is the wire format of POST /user/activity.
type UserActivityBody struct {
	UserID uint64 `json:"user_id" validate:"required"`
}

// ShopPerformanceBody is the wire format of POST /shop/performance.
type ShopPerformanceBody struct {
	ShopIDs       []string `json:"shop_ids"`
	IncludeTrends bool     `json:"include_trends"`
}

// QueryHandler serves the analytics endpoints.
type QueryHandler struct {
	service *query.Service
	logger  *zap.Logger
}

func NewQueryHandler(service *query.Service, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		service: service,
		logger:  logger,
	}
}

func parseQueryTime(raw string) (time.Time, bool) {
	for _, layout := range queryTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func timeRange(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, ok := parseQueryTime(rawStart)
	if !ok {
		return time.Time{}, time.Time{}, errors.ErrInvalidRequest.WithReason("invalid or missing start_time")
	}
	end, ok := parseQueryTime(rawEnd)
	if !ok {
		return time.Time{}, time.Time{}, errors.ErrInvalidRequest.WithReason("invalid or missing end_time")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.ErrInvalidRequest.WithReason("end_time must be after start_time")
	}
	return start, end, nil
}

// Timeseries godoc
// @Summary Timeseries query
// @Description Bucketised metric over a time range, routed to the raw log or projections
// @Tags Query
// @Accept json
// @Produce json
// @Param request body handler.TimeseriesBody true "Metric, granularity and time range"
// @Success 200 {object} utils.SuccessResponse{data=query.TimeseriesResult}
// @Failure 400 {object} utils.ErrorResponse
// @Router /timeseries [post]
func (h *QueryHandler) Timeseries(c *fiber.Ctx) error {
	var body TimeseriesBody
	if err := c.BodyParser(&body); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason(err.Error()))
	}
	if err := validator.Validate(body); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason(err.Error()))
	}
	start, end, err := timeRange(body.StartTime, body.EndTime)
	if err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.service.Timeseries(c.Context(), query.TimeseriesRequest{
		Metric:      body.Metric,
		Granularity: body.Granularity,
		Start:       start,
		End:         end,
		ShopID:      body.ShopID,
	})
	if err != nil {
		h.logger.Error("Timeseries query failed", zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{Total: len(result.Points)})
}

// Aggregate godoc
// @Summary Aggregate query
// @Description Grouped aggregation; monthly_summary, shop_performance and user_journeys read the projections, other metrics a 24h stream window
// @Tags Query
// @Accept json
// @Produce json
// @Param request body handler.AggregateBody true "Metric, dimensions and time range"
// @Success 200 {object} utils.SuccessResponse{data=query.AggregateResult}
// @Failure 400 {object} utils.ErrorResponse
// @Router /aggregate [post]
func (h *QueryHandler) Aggregate(c *fiber.Ctx) error {
	var body AggregateBody
	if err := c.BodyParser(&body); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason(err.Error()))
	}
	if err := validator.Validate(body); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason(err.Error()))
	}
	start, end, err := timeRange(body.StartTime, body.EndTime)
	if err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.service.Aggregate(c.Context(), query.AggregateRequest{
		Type:       body.Metric,
		Dimensions: body.Dimensions,
		Start:      start,
		End:        end,
	})
	if err != nil {
		h.logger.Error("Aggregate query failed", zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{Total: len(result.Points)})
}

// UserActivity godoc
// @Summary User activity
// @Description Combined realtime (last 24h) and historical view of a single user
// @Tags Query
// @Accept json
// @Produce json
// @Param request body handler.UserActivityBody true "User identifier"
// @Success 200 {object} utils.SuccessResponse{data=query.UserActivityResult}
// @Failure 400 {object} utils.ErrorResponse
// @Router /user/activity [post]
func (h *QueryHandler) UserActivity(c *fiber.Ctx) error {
	var body UserActivityBody
	if err := c.BodyParser(&body); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason(err.Error()))
	}
	if err := validator.Validate(body); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason(err.Error()))
	}

	result, err := h.service.UserActivity(c.Context(), body.UserID)
	if err != nil {
		h.logger.Error("User activity query failed",
			zap.Uint64("user_id", body.UserID),
			zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, nil)
}

// ShopPerformance godoc
// @Summary Shop performance
// @Description Latest per-shop metrics, optionally with week-over-week trends
// @Tags Query
// @Accept json
// @Produce json
// @Param request body handler.ShopPerformanceBody true "Optional shop filter and trend flag"
// @Success 200 {object} utils.SuccessResponse{data=query.ShopPerformanceResult}
// @Router /shop/performance [post]
func (h *QueryHandler) ShopPerformance(c *fiber.Ctx) error {
	var body ShopPerformanceBody
	if err := c.BodyParser(&body); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithReason(err.Error()))
	}

	result, err := h.service.ShopPerformance(c.Context(), body.ShopIDs, body.IncludeTrends)
	if err != nil {
		h.logger.Error("Shop performance query failed", zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{Total: len(result.Metrics)})
}

// Sources godoc
// @Summary Data sources
// @Description Describes the stream and batch backing stores and the routing rule
// @Tags Query
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /data/sources [get]
func (h *QueryHandler) Sources(c *fiber.Ctx) error {
	return utils.SendSuccess(c, h.service.Sources(), nil)
}
