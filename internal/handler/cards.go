package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/repository"
	"github.com/nakatash/pokeca-search/internal/service"
)

type CardHandler struct {
	Query  *service.CardQueryService
	Logger *zap.Logger
}

func (h *CardHandler) Register(r *gin.Engine) {
	g := r.Group("/api/cards")
	g.GET("", h.list)
	g.GET("/popular", h.popular)
	g.GET("/:id", h.get)
	r.GET("/api/shops/search", h.searchShop)
}

// @Summary Search cards
// @Tags cards
// @Param q query string false "name contains"
// @Param set_id query string false "set id"
// @Param rarity query string false "rarity"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param order_by query string false "name | number | updated_at"
// @Param ascending query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/cards [get]
func (h *CardHandler) list(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	result, err := h.Query.SearchCards(c.Request.Context(), repository.SearchCardsParams{
		Limit:  limit,
		Offset: offset,
		Query:  strQueryPtr(c, "q"),
		SetID:  strQueryPtr(c, "set_id"),
		Rarity: strQueryPtr(c, "rarity"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"name":       "name_jp",
			"number":     "number",
			"updated_at": "updated_at",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	})
	if err != nil {
		h.warn("search cards failed", err)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, result.Items, paginationMeta(limit, offset, result.Total))
}

// @Summary Card detail with current prices
// @Tags cards
// @Param id path string true "card id, e.g. sv4a-349"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/cards/{id} [get]
func (h *CardHandler) get(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	detail, err := h.Query.GetCard(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrCardNotFound) {
		Error(c, http.StatusNotFound, "card not found", nil)
		return
	}
	if err != nil {
		h.warn("get card failed", err)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, detail, nil)
}

// @Summary Most listed cards
// @Tags cards
// @Param limit query int false "limit"
// @Success 200 {object} apiResponse
// @Router /api/cards/popular [get]
func (h *CardHandler) popular(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	items, err := h.Query.PopularCards(c.Request.Context(), intQuery(c, "limit", 20))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Live search on one shop
// @Tags shops
// @Param source query string true "pokemontcg | cardrush | cardlabo | hareruya2"
// @Param q query string true "query"
// @Param page query int false "page"
// @Param limit query int false "limit"
// @Param sort query string false "price_asc | price_desc | name_asc | name_desc | newest | popularity"
// @Param min_price query int false "min price (JPY)"
// @Param max_price query int false "max price (JPY)"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/shops/search [get]
func (h *CardHandler) searchShop(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	source := strings.TrimSpace(c.Query("source"))
	query := strings.TrimSpace(c.Query("q"))
	if source == "" || query == "" {
		Error(c, http.StatusBadRequest, "source and q are required", nil)
		return
	}
	params := connector.SearchParams{
		Query:    query,
		Page:     intQuery(c, "page", 1),
		Limit:    intQuery(c, "limit", 0),
		SortBy:   connector.SortOption(strings.TrimSpace(c.Query("sort"))),
		MinPrice: int64QueryPtr(c, "min_price"),
		MaxPrice: int64QueryPtr(c, "max_price"),
	}
	res, err := h.Query.SearchShop(c.Request.Context(), source, params)
	var ce *connector.Error
	if errors.As(err, &ce) && ce.Code == connector.CodeUnknown {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		h.warn("shop search failed", err)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, res, map[string]any{"source": source})
}

func (h *CardHandler) warn(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, zap.Error(err))
	}
}
