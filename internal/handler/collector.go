package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/repository"
	"github.com/nakatash/pokeca-search/internal/service"
)

// CollectorHandler is the trigger boundary of the price collector. Its
// responses keep the {success, message|error, timestamp} shape cron callers
// rely on instead of the apiResponse envelope.
type CollectorHandler struct {
	Collector *service.CollectorService
	Runs      repository.CollectorRunRepository
	Auth      gin.HandlerFunc
	Logger    *zap.Logger
}

func (h *CollectorHandler) Register(r *gin.Engine) {
	g := r.Group("/api/cron")
	if h.Auth != nil {
		g.Use(h.Auth)
	}
	g.GET("/price-collector", h.run)
	g.POST("/price-collector", h.action)
	g.GET("/runs", h.listRuns)
}

type collectorActionRequest struct {
	Action string `json:"action"`
}

// @Summary Run one price collection
// @Tags cron
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]any
// @Router /api/cron/price-collector [get]
func (h *CollectorHandler) run(c *gin.Context) {
	h.runOnce(c, service.TriggerHTTP)
}

// @Summary Control the price collector
// @Tags cron
// @Security BearerAuth
// @Param body body collectorActionRequest true "start | stop | status | run"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/cron/price-collector [post]
func (h *CollectorHandler) action(c *gin.Context) {
	if h.Collector == nil {
		h.fail(c, http.StatusInternalServerError, "collector unavailable")
		return
	}
	var req collectorActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "start":
		started, err := h.Collector.Start(ctx)
		if err != nil && !started {
			h.fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		if err != nil {
			h.warn("first continuous run failed", err)
		}
		msg := "Continuous collection started"
		if !started {
			msg = "Continuous collection already running"
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   msg,
			"status":    h.Collector.Status(),
			"timestamp": now(),
		})
	case "stop":
		msg := "Continuous collection stopped"
		if !h.Collector.Stop() {
			msg = "Continuous collection was not running"
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   msg,
			"timestamp": now(),
		})
	case "status":
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"status":    h.Collector.Status(),
			"timestamp": now(),
		})
	case "run":
		h.runOnce(c, service.TriggerHTTP)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
	}
}

func (h *CollectorHandler) runOnce(c *gin.Context, trigger string) {
	if h.Collector == nil {
		h.fail(c, http.StatusInternalServerError, "collector unavailable")
		return
	}
	summary, err := h.Collector.Run(context.WithoutCancel(c.Request.Context()), trigger)
	if errors.Is(err, service.ErrRunInProgress) {
		h.fail(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.warn("price collection failed", err)
		h.fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Price collection completed successfully",
		"summary":   summary,
		"timestamp": now(),
	})
}

// @Summary List recent collection runs
// @Tags cron
// @Security BearerAuth
// @Param limit query int false "limit"
// @Success 200 {object} apiResponse
// @Router /api/cron/runs [get]
func (h *CollectorHandler) listRuns(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Runs.ListCollectorRuns(c.Request.Context(), intQuery(c, "limit", 20))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *CollectorHandler) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success":   false,
		"error":     msg,
		"timestamp": now(),
	})
}

func (h *CollectorHandler) warn(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, zap.Error(err))
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
