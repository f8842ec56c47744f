package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/export"
	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/service"
)

type RankingHandler struct {
	Service *service.RankingService
	// Auth guards the rebuild endpoint only; reads are public.
	Auth   gin.HandlerFunc
	Logger *zap.Logger
}

func (h *RankingHandler) Register(r *gin.Engine) {
	g := r.Group("/api/rankings")
	g.GET("", h.list)
	g.GET("/:type/export", h.export)
	if h.Auth != nil {
		g.POST("", h.Auth, h.rebuild)
	} else {
		g.POST("", h.rebuild)
	}
}

// @Summary Read a ranking
// @Tags rankings
// @Param type query string true "spike_24h | drop_24h | spike_7d | drop_7d | low_stock"
// @Param limit query int false "limit (default 50)"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/rankings [get]
func (h *RankingHandler) list(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	rankingType := strings.TrimSpace(c.Query("type"))
	rows, err := h.Service.GetRanking(c.Request.Context(), rankingType, intQuery(c, "limit", 0))
	if errors.Is(err, service.ErrUnknownRankingType) {
		Error(c, http.StatusBadRequest, err.Error(), map[string]any{"types": models.RankingTypes()})
		return
	}
	if err != nil {
		h.warn("get ranking failed", rankingType, err)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, rows, map[string]any{"type": rankingType, "count": len(rows)})
}

type rebuildRankingsRequest struct {
	Type string `json:"type"`
}

// @Summary Rebuild rankings
// @Tags rankings
// @Security BearerAuth
// @Param body body rebuildRankingsRequest true "type or all"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/rankings [post]
func (h *RankingHandler) rebuild(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req rebuildRankingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	rankingType := strings.TrimSpace(req.Type)
	if rankingType == "" || rankingType == "all" {
		Ok(c, h.Service.UpdateAllRankings(c.Request.Context()), nil)
		return
	}
	n, err := h.Service.UpdateRankings(c.Request.Context(), rankingType)
	if errors.Is(err, service.ErrUnknownRankingType) {
		Error(c, http.StatusBadRequest, err.Error(), map[string]any{"types": models.RankingTypes()})
		return
	}
	if err != nil {
		h.warn("update ranking failed", rankingType, err)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, []service.RankingUpdate{{Type: rankingType, Count: n}}, nil)
}

// @Summary Export a ranking as xlsx
// @Tags rankings
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type path string true "ranking type"
// @Param limit query int false "limit (default 50)"
// @Success 200 {file} file
// @Failure 400 {object} apiResponse
// @Router /api/rankings/{type}/export [get]
func (h *RankingHandler) export(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	rankingType := strings.TrimSpace(c.Param("type"))
	rows, err := h.Service.GetRanking(c.Request.Context(), rankingType, intQuery(c, "limit", 0))
	if errors.Is(err, service.ErrUnknownRankingType) {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteRankings(&buf, rankingType, rows); err != nil {
		h.warn("ranking export failed", rankingType, err)
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(rankingType)+`"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

func (h *RankingHandler) warn(msg, rankingType string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, zap.String("type", rankingType), zap.Error(err))
	}
}
