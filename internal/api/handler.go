package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/issue-burndown/internal/burndown"
	"github.com/kurihiro0119/issue-burndown/internal/domain"
	apperrors "github.com/kurihiro0119/issue-burndown/internal/errors"
	"github.com/kurihiro0119/issue-burndown/internal/render"
	"github.com/kurihiro0119/issue-burndown/internal/smoothing"
)

// ChartSource builds charts from stored snapshots
type ChartSource interface {
	Chart(ctx context.Context, project string, since *time.Time, opts smoothing.Options) (*domain.Chart, error)
}

var _ ChartSource = (*burndown.Service)(nil)

// Handler handles API requests
type Handler struct {
	charts  ChartSource
	samples int
}

// NewHandler creates a new API handler. samples is the default grid size.
func NewHandler(charts ChartSource, samples int) *Handler {
	if samples < 2 {
		samples = smoothing.DefaultSamples
	}
	return &Handler{
		charts:  charts,
		samples: samples,
	}
}

// GetBurndown returns the burndown chart data of a project
// GET /api/v1/projects/:project/burndown
func (h *Handler) GetBurndown(c *gin.Context) {
	chart, ok := h.chart(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": chart,
	})
}

// GetBurndownChart renders the burndown chart of a project as HTML
// GET /api/v1/projects/:project/burndown/chart
func (h *Handler) GetBurndownChart(c *gin.Context) {
	chart, ok := h.chart(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := render.NewHTMLRenderer().Render(c.Writer, chart); err != nil {
		_ = c.Error(err)
	}
}

// HealthCheck returns the health status
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (h *Handler) chart(c *gin.Context) (*domain.Chart, bool) {
	project := c.Param("project")
	opts, err := h.parseOptions(c)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	since, err := burndown.ParseSince(c.Query("since"))
	if err != nil {
		respondError(c, apperrors.NewBadRequestError(err.Error()))
		return nil, false
	}

	chart, err := h.charts.Chart(c.Request.Context(), project, since, opts)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return chart, true
}

func (h *Handler) parseOptions(c *gin.Context) (smoothing.Options, error) {
	opts := smoothing.DefaultOptions()
	opts.Samples = h.samples

	if v := c.Query("samples"); v != "" {
		samples, err := strconv.Atoi(v)
		if err != nil || samples < 2 {
			return opts, apperrors.NewBadRequestError("samples must be an integer of at least 2")
		}
		opts.Samples = samples
	}
	if v := c.Query("raw"); v != "" {
		raw, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.NewBadRequestError("raw must be a boolean")
		}
		opts.Disabled = raw
	}
	return opts, nil
}

// respondError maps application errors to HTTP responses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrCodeBadRequest, apperrors.ErrCodeUsage:
		status = http.StatusBadRequest
	case apperrors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	case "":
		code = apperrors.ErrCodeInternal
	}

	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
