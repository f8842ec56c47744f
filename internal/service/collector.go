package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/nakatash/pokeca-search/internal/config"
	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/fetcher"
	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

const (
	TriggerHTTP       = "http"
	TriggerCron       = "cron"
	TriggerContinuous = "continuous"

	defaultCollectInterval = 24 * time.Hour
	defaultMaxCardsPerRun  = 2000
	defaultCollectPageSize = 20
	defaultMaxPages        = 3
	maxReportedErrors      = 5
	// A page that is rate limited is retried this many times in total, and
	// only when the advertised wait is short enough.
	rateLimitAttempts = 3
	maxRateLimitWait  = 90 * time.Second
)

var ErrRunInProgress = errors.New("collection run already in progress")

// ConnectorSource resolves a source identifier to its connector.
type ConnectorSource interface {
	Get(source string) (connector.Connector, error)
}

// Scheduler registers the continuous-mode tick.
type Scheduler interface {
	AddEvery(interval time.Duration, job func(context.Context)) (cron.EntryID, error)
	Remove(id cron.EntryID)
}

// RankingRebuilder refreshes the derived rankings once new snapshots exist.
type RankingRebuilder interface {
	UpdateAllRankings(ctx context.Context) []RankingUpdate
}

type CollectorService struct {
	Registry  ConnectorSource
	Ingestion *IngestionService
	Rankings  RankingRebuilder
	Runs      repository.CollectorRunRepository
	Settings  *SystemSettingsService
	Scheduler Scheduler
	Config    config.CollectorConfig
	Logger    *zap.Logger

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	runMu sync.Mutex

	mu          sync.Mutex
	running     bool
	entryID     cron.EntryID
	lastRun     *time.Time
	lastSummary *RunSummary
}

type SourceSummary struct {
	Source string `json:"source"`
	Cards  int    `json:"cards"`
	Pages  int    `json:"pages"`
	Errors int    `json:"errors"`
}

// RunSummary is produced by every run, including partially failed ones.
type RunSummary struct {
	ID           string          `json:"id"`
	Trigger      string          `json:"trigger"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	CardsFetched int             `json:"cards_fetched"`
	SuccessCount int             `json:"success_count"`
	FailedCount  int             `json:"failed_count"`
	Sources      []SourceSummary `json:"sources"`
	SourceErrors []string        `json:"source_errors,omitempty"`
	Errors       []string        `json:"errors,omitempty"`
	Snapshots    SnapshotResult  `json:"snapshots"`
	Rankings     []RankingUpdate `json:"rankings,omitempty"`
}

type CollectorStatus struct {
	Running     bool                   `json:"running"`
	LastRun     *time.Time             `json:"last_run,omitempty"`
	NextRun     *time.Time             `json:"next_run,omitempty"`
	LastSummary *RunSummary            `json:"last_summary,omitempty"`
	Config      config.CollectorConfig `json:"config"`
}

type sourceOutcome struct {
	summary SourceSummary
	cards   []connector.ShopCard
	errs    []*SourceError
}

// Run performs one collection: every enabled source is paged through, the
// accumulated listings are ingested in one batch and the hourly snapshots
// and rankings are refreshed. Only an unreachable store fails the run as a
// whole.
func (s *CollectorService) Run(ctx context.Context, trigger string) (*RunSummary, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	summary := &RunSummary{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: s.now(),
	}
	if s.Ingestion == nil || s.Ingestion.Store == nil {
		return summary, ErrStoreUnavailable
	}
	if err := s.Ingestion.Store.Ping(ctx); err != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		s.finish(ctx, summary, err)
		return summary, err
	}
	s.info("collection started", zap.String("run_id", summary.ID), zap.String("trigger", trigger))

	cards := s.collect(ctx, summary)
	summary.CardsFetched = len(cards)

	if len(cards) > 0 {
		result, err := s.Ingestion.IngestBatch(ctx, cards)
		if err != nil {
			s.finish(ctx, summary, err)
			return summary, err
		}
		summary.SuccessCount = result.SuccessCount
		summary.FailedCount = result.FailedCount
		for i, e := range result.Errors {
			if i >= maxReportedErrors {
				break
			}
			summary.Errors = append(summary.Errors, e.Error())
		}
		snaps, err := s.Ingestion.CreateAllSnapshots(ctx)
		if err != nil {
			s.warn("snapshot materialization failed", zap.String("run_id", summary.ID), zap.Error(err))
		} else {
			summary.Rankings = s.rebuildRankings(ctx, summary.ID)
		}
		summary.Snapshots = snaps
	}

	s.finish(ctx, summary, nil)
	return summary, nil
}

func (s *CollectorService) collect(ctx context.Context, summary *RunSummary) []connector.ShopCard {
	sources := make([]config.CollectorSourceConfig, 0, len(s.Config.Sources))
	for _, src := range s.Config.Sources {
		if src.Enabled {
			sources = append(sources, src)
		}
	}
	outcomes := make([]sourceOutcome, len(sources))
	budget := &cardBudget{remaining: s.maxCards()}
	workers := s.Config.Concurrency
	if workers <= 0 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if i >= workers && s.Config.SourceDelay > 0 {
				if err := s.sleep(ctx, s.Config.SourceDelay); err != nil {
					outcomes[i] = sourceOutcome{
						summary: SourceSummary{Source: src.Source, Errors: 1},
						errs:    []*SourceError{{Source: src.Source, Err: err}},
					}
					return nil
				}
			}
			outcomes[i] = s.collectSource(ctx, src, budget)
			return nil
		})
	}
	_ = g.Wait()

	var cards []connector.ShopCard
	for _, out := range outcomes {
		summary.Sources = append(summary.Sources, out.summary)
		for _, e := range out.errs {
			summary.SourceErrors = append(summary.SourceErrors, e.Error())
			s.warn("source failed", zap.String("run_id", summary.ID), zap.String("source", e.Source), zap.String("query", e.Query), zap.Error(e.Err))
		}
		cards = append(cards, out.cards...)
	}
	return cards
}

// collectSource pages through every query of one source. A failing query is
// recorded and the next query is tried.
func (s *CollectorService) collectSource(ctx context.Context, src config.CollectorSourceConfig, budget *cardBudget) sourceOutcome {
	out := sourceOutcome{summary: SourceSummary{Source: src.Source}}
	conn, err := s.Registry.Get(src.Source)
	if err != nil {
		out.summary.Errors++
		out.errs = append(out.errs, &SourceError{Source: src.Source, Err: err})
		return out
	}
	maxPages := src.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

queries:
	for _, query := range src.Queries {
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}
		for page := 1; page <= maxPages; page++ {
			if budget.exhausted() || ctx.Err() != nil {
				break queries
			}
			res, err := s.searchPage(ctx, conn, connector.SearchParams{
				Query:  query,
				Page:   page,
				Limit:  s.pageSize(),
				SortBy: connector.SortOption(s.sortBy()),
			})
			out.summary.Pages++
			if err != nil {
				out.summary.Errors++
				out.errs = append(out.errs, &SourceError{Source: src.Source, Query: query, Page: page, Err: err})
				break
			}
			n := budget.take(len(res.Cards))
			out.cards = append(out.cards, res.Cards[:n]...)
			out.summary.Cards += n
			if !res.HasMore || n < len(res.Cards) || page == maxPages {
				break
			}
			if err := s.sleep(ctx, s.Config.PageDelay); err != nil {
				break queries
			}
		}
	}
	return out
}

// searchPage waits out short local or upstream rate limits before giving up
// on the page.
func (s *CollectorService) searchPage(ctx context.Context, conn connector.Connector, params connector.SearchParams) (*connector.SearchResult, error) {
	for attempt := 1; ; attempt++ {
		res, err := conn.SearchCards(ctx, params)
		if err == nil {
			return res, nil
		}
		var rl *fetcher.RateLimitedError
		if !errors.As(err, &rl) || attempt >= rateLimitAttempts || rl.RetryAfter > maxRateLimitWait {
			return nil, err
		}
		if s.Logger != nil {
			s.Logger.Debug("page rate limited",
				zap.String("source", conn.Source()),
				zap.String("query", params.Query),
				zap.Int("page", params.Page),
				zap.Duration("retry_after", rl.RetryAfter),
			)
		}
		if err := s.sleep(ctx, rl.RetryAfter); err != nil {
			return nil, err
		}
	}
}

// Start enters continuous mode: an immediate run followed by a run every
// interval. Calling it again while active does nothing.
func (s *CollectorService) Start(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false, nil
	}
	if s.Scheduler == nil {
		s.mu.Unlock()
		return false, errors.New("scheduler not configured")
	}
	id, err := s.Scheduler.AddEvery(s.interval(), s.tick)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.running = true
	s.entryID = id
	s.mu.Unlock()

	s.info("continuous collection started", zap.Duration("interval", s.interval()))
	if _, err := s.Run(ctx, TriggerContinuous); err != nil && !errors.Is(err, ErrRunInProgress) {
		return true, err
	}
	return true, nil
}

// Stop leaves continuous mode. A run already in flight completes.
func (s *CollectorService) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	if s.Scheduler != nil {
		s.Scheduler.Remove(s.entryID)
	}
	s.running = false
	s.entryID = 0
	s.info("continuous collection stopped")
	return true
}

func (s *CollectorService) rebuildRankings(ctx context.Context, runID string) []RankingUpdate {
	if s.Rankings == nil || !s.Settings.IsEnabled(ctx, FeatureRankings, true) {
		return nil
	}
	updates := s.Rankings.UpdateAllRankings(ctx)
	for _, u := range updates {
		if u.Error != "" {
			s.warn("ranking rebuild failed", zap.String("run_id", runID), zap.String("type", u.Type), zap.String("error", u.Error))
		}
	}
	return updates
}

func (s *CollectorService) tick(ctx context.Context) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return
	}
	if !s.Settings.IsEnabled(ctx, FeatureCollector, true) {
		return
	}
	if _, err := s.Run(ctx, TriggerContinuous); err != nil {
		s.warn("continuous collection run failed", zap.Error(err))
	}
}

func (s *CollectorService) Status() CollectorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := CollectorStatus{
		Running:     s.running,
		LastSummary: s.lastSummary,
		Config:      s.Config,
	}
	if s.lastRun != nil {
		last := *s.lastRun
		next := last.Add(s.interval())
		st.LastRun = &last
		st.NextRun = &next
	}
	return st
}

func (s *CollectorService) finish(ctx context.Context, summary *RunSummary, runErr error) {
	summary.FinishedAt = s.now()
	s.mu.Lock()
	finished := summary.FinishedAt
	s.lastRun = &finished
	s.lastSummary = summary
	s.mu.Unlock()

	if runErr != nil {
		s.warn("collection failed", zap.String("run_id", summary.ID), zap.Error(runErr))
	} else {
		s.info("collection finished",
			zap.String("run_id", summary.ID),
			zap.Int("cards", summary.CardsFetched),
			zap.Int("success", summary.SuccessCount),
			zap.Int("failed", summary.FailedCount),
			zap.Int("source_errors", len(summary.SourceErrors)),
			zap.Int("snapshots", summary.Snapshots.Created),
			zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)),
		)
		for _, e := range summary.Errors {
			s.warn("ingest error", zap.String("run_id", summary.ID), zap.String("detail", e))
		}
	}
	if s.Runs == nil {
		return
	}
	if err := s.Runs.SaveCollectorRun(ctx, runRecord(summary, runErr)); err != nil {
		s.warn("save collector run failed", zap.String("run_id", summary.ID), zap.Error(err))
	}
}

func runRecord(summary *RunSummary, runErr error) *models.CollectorRun {
	stats, _ := json.Marshal(summary.Sources)
	details := append(append([]string{}, summary.SourceErrors...), summary.Errors...)
	errs, _ := json.Marshal(details)
	finished := summary.FinishedAt
	rec := &models.CollectorRun{
		ID:           summary.ID,
		Trigger:      summary.Trigger,
		StartedAt:    summary.StartedAt,
		FinishedAt:   &finished,
		CardsFetched: summary.CardsFetched,
		SuccessCount: summary.SuccessCount,
		FailedCount:  summary.FailedCount,
		Snapshots:    summary.Snapshots.Created,
		SourceStats:  datatypes.JSON(stats),
		Errors:       datatypes.JSON(errs),
	}
	if runErr != nil {
		msg := runErr.Error()
		rec.Error = &msg
	}
	return rec
}

// cardBudget enforces the per-run card cap across concurrently collected sources.
type cardBudget struct {
	mu        sync.Mutex
	remaining int
}

func (b *cardBudget) take(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.remaining {
		n = b.remaining
	}
	b.remaining -= n
	return n
}

func (b *cardBudget) exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining <= 0
}

func (s *CollectorService) maxCards() int {
	if s.Config.MaxCardsPerRun > 0 {
		return s.Config.MaxCardsPerRun
	}
	return defaultMaxCardsPerRun
}

func (s *CollectorService) pageSize() int {
	if s.Config.PageSize > 0 {
		return s.Config.PageSize
	}
	return defaultCollectPageSize
}

func (s *CollectorService) sortBy() string {
	if v := strings.TrimSpace(s.Config.SortBy); v != "" {
		return v
	}
	return string(connector.SortNewest)
}

func (s *CollectorService) interval() time.Duration {
	if s.Config.Interval > 0 {
		return s.Config.Interval
	}
	return defaultCollectInterval
}

func (s *CollectorService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CollectorService) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *CollectorService) info(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Info(msg, fields...)
	}
}

func (s *CollectorService) warn(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields...)
	}
}
