package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/askwhyharsh/fogofearth/internal/coverage"
	"github.com/askwhyharsh/fogofearth/internal/fog"
	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/internal/ratelimit"
	"github.com/askwhyharsh/fogofearth/internal/session"
	apperrors "github.com/askwhyharsh/fogofearth/pkg/errors"
	"github.com/askwhyharsh/fogofearth/pkg/logger"
	"github.com/askwhyharsh/fogofearth/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
)

const defaultMaskSegments = 32

type FogService interface {
	AddPrimary(p location.GeoPoint) bool
	ExportChunks(ctx context.Context) (fog.Export, error)
	ImportScanned(ctx context.Context, scan string) (fog.ImportResult, error)
	EstimateUncovered() coverage.Estimate
	BuildMaskDescription() coverage.MaskSpec
	Flush(ctx context.Context) error
	Reset(ctx context.Context) error
	Stats() fog.Stats
}

type SessionTracker interface {
	Start(ctx context.Context) error
	End(ctx context.Context) (*session.Summary, error)
	Active() bool
}

type Handler struct {
	fog         FogService
	sessions    SessionTracker
	rateLimiter ratelimit.RateLimiter
	validator   validator.Validator
	logger      logger.Logger
}

type LocationResponse struct {
	Added         bool `json:"added"`
	PrimaryPoints int  `json:"primary_points"`
}

type ExportResponse struct {
	Encoded string   `json:"encoded"`
	Parts   int      `json:"parts"`
	Chunks  []string `json:"chunks"`
}

type CoverageResponse struct {
	Uncovered    float64 `json:"uncovered"`
	StepMeters   float64 `json:"step_meters"`
	TotalCells   int     `json:"total_cells"`
	CoveredCells int     `json:"covered_cells"`
}

func NewHandler(fogService FogService, sessions SessionTracker, rateLimiter ratelimit.RateLimiter, validator validator.Validator, log logger.Logger) *Handler {
	return &Handler{
		fog:         fogService,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		validator:   validator,
		logger:      log,
	}
}

// POST /api/location/update
func (h *Handler) UpdateLocation(c *gin.Context) {
	var req struct {
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", CodeInvalidRequest))
		return
	}

	if err := h.validator.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_COORDINATES"))
		return
	}

	allowed, err := h.rateLimiter.AllowLocationUpdate(c.Request.Context(), c.GetString(ratelimit.DeviceIDKey))
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, ErrorResponse("Location update rate limit exceeded", CodeRateLimit))
		return
	}

	added := h.fog.AddPrimary(location.NewGeoPoint(*req.Latitude, *req.Longitude))

	c.JSON(http.StatusOK, SuccessResponse(LocationResponse{
		Added:         added,
		PrimaryPoints: h.fog.Stats().PrimaryPoints,
	}))
}

// GET /api/fog/export
func (h *Handler) Export(c *gin.Context) {
	export, err := h.fog.ExportChunks(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export fog", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to export map", CodeInternal))
		return
	}

	labels := make([]string, len(export.Chunks))
	for i, chunk := range export.Chunks {
		labels[i] = chunk.String()
	}

	c.JSON(http.StatusOK, SuccessResponse(ExportResponse{
		Encoded: export.Encoded,
		Parts:   len(export.Chunks),
		Chunks:  labels,
	}))
}

// POST /api/fog/import
func (h *Handler) Import(c *gin.Context) {
	var req struct {
		Scan string `json:"scan" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", CodeInvalidRequest))
		return
	}

	if err := h.validator.ValidateScan(req.Scan); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_SCAN"))
		return
	}

	allowed, err := h.rateLimiter.AllowImportScan(c.Request.Context(), c.GetString(ratelimit.DeviceIDKey))
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, ErrorResponse("Import rate limit exceeded", CodeRateLimit))
		return
	}

	result, err := h.fog.ImportScanned(c.Request.Context(), req.Scan)
	if err != nil {
		status, resp := ErrorFrom(err, "Failed to import map")
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to import scan", "error", err)
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(result))
}

// GET /api/fog/coverage
func (h *Handler) Coverage(c *gin.Context) {
	est := h.fog.EstimateUncovered()

	c.JSON(http.StatusOK, SuccessResponse(CoverageResponse{
		Uncovered:    est.Uncovered,
		StepMeters:   est.StepMeters,
		TotalCells:   est.TotalCells,
		CoveredCells: est.CoveredCells,
	}))
}

// GET /api/fog/mask?format=geojson&segments=32&bbox=minLon,minLat,maxLon,maxLat
func (h *Handler) Mask(c *gin.Context) {
	mask := h.fog.BuildMaskDescription()

	if raw := c.Query("bbox"); raw != "" {
		view, err := parseBBox(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_BBOX"))
			return
		}
		mask = mask.Cull(view)
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, SuccessResponse(mask))
	case "geojson":
		segments, err := strconv.Atoi(c.DefaultQuery("segments", strconv.Itoa(defaultMaskSegments)))
		if err != nil || segments < 0 || segments > 360 {
			c.JSON(http.StatusBadRequest, ErrorResponse("segments must be between 0 and 360", CodeInvalidRequest))
			return
		}
		c.JSON(http.StatusOK, mask.GeoJSON(segments))
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse("format must be json or geojson", CodeInvalidRequest))
	}
}

func parseBBox(raw string) (orb.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, errors.New("bbox must be minLon,minLat,maxLon,maxLat")
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, errors.New("bbox values must be numbers")
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, errors.New("bbox min must not exceed max")
	}

	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

// GET /api/fog/stats
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse(h.fog.Stats()))
}

// POST /api/fog/flush
func (h *Handler) Flush(c *gin.Context) {
	if err := h.fog.Flush(c.Request.Context()); err != nil {
		h.respondStorageError(c, "Failed to save map", err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(h.fog.Stats()))
}

// DELETE /api/fog
func (h *Handler) Reset(c *gin.Context) {
	if err := h.fog.Reset(c.Request.Context()); err != nil {
		h.respondStorageError(c, "Failed to clear map", err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"message": "Map cleared",
	}))
}

func (h *Handler) respondStorageError(c *gin.Context, message string, err error) {
	h.logger.Error(message, "error", err)
	if !errors.Is(err, apperrors.ErrWriteConflict) {
		err = apperrors.NewAppError(apperrors.ErrStorageUnavailable, message, http.StatusServiceUnavailable)
	}
	c.JSON(ErrorFrom(err, message))
}

// POST /api/session/start
func (h *Handler) StartSession(c *gin.Context) {
	if err := h.sessions.Start(c.Request.Context()); err != nil {
		h.logger.Error("Failed to start session", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to start session", CodeInternal))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"active": true,
	}))
}

// POST /api/session/end
func (h *Handler) EndSession(c *gin.Context) {
	summary, err := h.sessions.End(c.Request.Context())
	if err != nil {
		if !errors.Is(err, apperrors.ErrSessionNotActive) {
			h.logger.Error("Failed to end session", "error", err)
		}
		c.JSON(ErrorFrom(err, "Failed to end session"))
		return
	}

	// Backgrounding is a save point.
	if err := h.fog.Flush(c.Request.Context()); err != nil {
		h.logger.Error("Failed to save map at session end", "error", err)
	}

	c.JSON(http.StatusOK, SuccessResponse(summary))
}

// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   c.GetTime("request_time"),
	})
}
