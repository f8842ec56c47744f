package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/nakatash/pokeca-search/internal/config"
	"github.com/nakatash/pokeca-search/internal/export"
	"github.com/nakatash/pokeca-search/internal/middleware"
	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
	"github.com/nakatash/pokeca-search/internal/service"
)

// fakeRepo overrides the handful of store methods these handlers reach;
// anything else panics through the nil embedded interface.
type fakeRepo struct {
	repository.Repository
	pingErr  error
	runs     []models.CollectorRun
	rankings []repository.RankingRow
	replaced map[string]int
}

func (f *fakeRepo) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeRepo) SaveCollectorRun(ctx context.Context, item *models.CollectorRun) error {
	f.runs = append(f.runs, *item)
	return nil
}

func (f *fakeRepo) ListCollectorRuns(ctx context.Context, limit int) ([]models.CollectorRun, error) {
	return f.runs, nil
}

func (f *fakeRepo) ListRankings(ctx context.Context, params repository.ListRankingsParams) ([]repository.RankingRow, error) {
	return f.rankings, nil
}

func (f *fakeRepo) ListPriceSnapshots(ctx context.Context, params repository.ListPriceSnapshotsParams) ([]models.PriceSnapshot, error) {
	return nil, nil
}

func (f *fakeRepo) ListStockTotals(ctx context.Context, since time.Time) ([]repository.CardStockTotal, error) {
	return nil, nil
}

func (f *fakeRepo) ReplaceRankings(ctx context.Context, rankingType string, items []models.Ranking) error {
	if f.replaced == nil {
		f.replaced = map[string]int{}
	}
	f.replaced[rankingType] = len(items)
	return nil
}

func (f *fakeRepo) GetCardByID(ctx context.Context, id string) (*models.Card, error) {
	return nil, nil
}

type fakeScheduler struct{ added, removed int }

func (f *fakeScheduler) AddEvery(interval time.Duration, job func(context.Context)) (cron.EntryID, error) {
	f.added++
	return cron.EntryID(f.added), nil
}

func (f *fakeScheduler) Remove(id cron.EntryID) { f.removed++ }

func newTestRouter(repo *fakeRepo, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := middleware.RequireCronSecret(config.AuthConfig{CronSecret: secret}, true, nil)
	collector := &service.CollectorService{
		Ingestion: &service.IngestionService{Store: repo},
		Runs:      repo,
		Scheduler: &fakeScheduler{},
		Sleep:     func(ctx context.Context, d time.Duration) error { return nil },
	}
	(&CollectorHandler{Collector: collector, Runs: repo, Auth: auth}).Register(r)
	(&RankingHandler{Service: &service.RankingService{Store: repo}, Auth: auth}).Register(r)
	(&CardHandler{Query: &service.CardQueryService{Repo: repo}}).Register(r)
	(&HealthHandler{Store: repo}).Register(r)
	return r
}

func do(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPriceCollectorGET(t *testing.T) {
	repo := &fakeRepo{}
	r := newTestRouter(repo, "s3cret")

	w := do(r, http.MethodGet, "/api/cron/price-collector", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/cron/price-collector", "", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, true, body["success"])
	require.NotEmpty(t, body["message"])
	require.NotEmpty(t, body["timestamp"])
	require.Len(t, repo.runs, 1)
}

func TestPriceCollectorGET_StoreDown(t *testing.T) {
	repo := &fakeRepo{pingErr: errors.New("dial tcp: connection refused")}
	r := newTestRouter(repo, "s3cret")

	w := do(r, http.MethodGet, "/api/cron/price-collector", "", "s3cret")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	require.Equal(t, false, body["success"])
	require.Contains(t, body["error"], "store unavailable")
	require.NotEmpty(t, body["timestamp"])
}

func TestPriceCollectorPOST_Actions(t *testing.T) {
	repo := &fakeRepo{}
	r := newTestRouter(repo, "s3cret")

	w := do(r, http.MethodPost, "/api/cron/price-collector", `{"action":"explode"}`, "s3cret")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid action", decode(t, w)["error"])

	w = do(r, http.MethodPost, "/api/cron/price-collector", `{"action":"start"}`, "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Continuous collection started", decode(t, w)["message"])

	w = do(r, http.MethodPost, "/api/cron/price-collector", `{"action":"start"}`, "s3cret")
	require.Equal(t, "Continuous collection already running", decode(t, w)["message"])

	w = do(r, http.MethodPost, "/api/cron/price-collector", `{"action":"status"}`, "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)["status"].(map[string]any)
	require.Equal(t, true, status["running"])

	w = do(r, http.MethodPost, "/api/cron/price-collector", `{"action":"stop"}`, "s3cret")
	require.Equal(t, "Continuous collection stopped", decode(t, w)["message"])
	w = do(r, http.MethodPost, "/api/cron/price-collector", `{"action":"stop"}`, "s3cret")
	require.Equal(t, "Continuous collection was not running", decode(t, w)["message"])

	w = do(r, http.MethodPost, "/api/cron/price-collector", `{"action":"run"}`, "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["success"])

	w = do(r, http.MethodGet, "/api/cron/runs", "", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["data"], 2)
}

func TestRankingsEndpoints(t *testing.T) {
	price := int64(500)
	repo := &fakeRepo{rankings: []repository.RankingRow{{
		Ranking:      models.Ranking{CardID: "sv2a-025", Type: models.RankingLowStock, Rank: 1},
		NameJP:       "ピカチュウ",
		CurrentPrice: &price,
	}}}
	r := newTestRouter(repo, "s3cret")

	w := do(r, http.MethodGet, "/api/rankings?type=spike_1y", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/rankings?type=low_stock&limit=10", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]any)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	require.Equal(t, "sv2a-025", row["card_id"])
	require.EqualValues(t, 500, row["current_price"])

	w = do(r, http.MethodPost, "/api/rankings", `{"type":"all"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(r, http.MethodPost, "/api/rankings", `{"type":"all"}`, "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.replaced, len(models.RankingTypes()))

	w = do(r, http.MethodPost, "/api/rankings", `{"type":"bogus"}`, "s3cret")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/rankings/low_stock/export", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "rankings_low_stock.xlsx")
}

func TestCardNotFound(t *testing.T) {
	r := newTestRouter(&fakeRepo{}, "s3cret")
	w := do(r, http.MethodGet, "/api/cards/sv9-999", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestShopSearchRequiresParams(t *testing.T) {
	r := newTestRouter(&fakeRepo{}, "s3cret")
	w := do(r, http.MethodGet, "/api/shops/search?source=cardrush", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadiness(t *testing.T) {
	r := newTestRouter(&fakeRepo{}, "")
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/readyz", "", "").Code)

	r = newTestRouter(&fakeRepo{pingErr: errors.New("down")}, "")
	require.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/readyz", "", "").Code)
}
