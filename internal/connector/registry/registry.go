// Package registry maps source identifiers to connector instances. Each
// connector is built on first use with its own fetcher, so request windows
// are never shared between sources.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/config"
	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/connector/cardlabo"
	"github.com/nakatash/pokeca-search/internal/connector/cardrush"
	"github.com/nakatash/pokeca-search/internal/connector/hareruya2"
	"github.com/nakatash/pokeca-search/internal/connector/pokemontcg"
	"github.com/nakatash/pokeca-search/internal/fetcher"
)

// Factory builds a connector. It is called at most once per registry.
type Factory func() connector.Connector

type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]connector.Connector
}

// New registers the built-in sources configured by cfg.
func New(cfg config.Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := Empty()
	src := cfg.Sources

	r.Register(pokemontcg.Source, func() connector.Connector {
		limit := src.PokemonTCG.AnonymousRateLimit
		if src.PokemonTCG.APIKey != "" {
			limit = src.PokemonTCG.RateLimit
		}
		return pokemontcg.New(newFetcher(cfg.Fetcher, pokemontcg.Source, limit, logger), pokemontcg.Options{
			BaseURL:  src.PokemonTCG.BaseURL,
			APIKey:   src.PokemonTCG.APIKey,
			USDToJPY: decimal.NewFromFloat(src.PokemonTCG.USDToJPY),
			EURToJPY: decimal.NewFromFloat(src.PokemonTCG.EURToJPY),
			Logger:   logger,
		})
	})
	r.Register(cardrush.Source, func() connector.Connector {
		return cardrush.New(newFetcher(cfg.Fetcher, cardrush.Source, src.CardRush.RateLimit, logger), cardrush.Options{
			BaseURL: src.CardRush.BaseURL,
			Logger:  logger,
		})
	})
	r.Register(cardlabo.Source, func() connector.Connector {
		return cardlabo.New(newFetcher(cfg.Fetcher, cardlabo.Source, src.CardLabo.RateLimit, logger), cardlabo.Options{
			BaseURL: src.CardLabo.BaseURL,
			Logger:  logger,
		})
	})
	r.Register(hareruya2.Source, func() connector.Connector {
		return hareruya2.New(newFetcher(cfg.Fetcher, hareruya2.Source, src.Hareruya2.RateLimit, logger), hareruya2.Options{
			BaseURL:    src.Hareruya2.BaseURL,
			PriceScale: decimal.NewFromInt(int64(src.Hareruya2.PriceScale)),
			Logger:     logger,
		})
	})
	return r
}

// Empty returns a registry without any sources.
func Empty() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]connector.Connector),
	}
}

// Register adds or replaces the factory for source and drops any cached
// instance built by the previous factory.
func (r *Registry) Register(source string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[source] = f
	delete(r.instances, source)
}

func (r *Registry) Get(source string) (connector.Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.instances[source]; ok {
		return c, nil
	}
	f, ok := r.factories[source]
	if !ok {
		return nil, &connector.Error{Source: source, Code: connector.CodeUnknown, Err: fmt.Errorf("unsupported source %q", source)}
	}
	c := f()
	r.instances[source] = c
	return c, nil
}

// Sources lists registered identifiers in lexical order.
func (r *Registry) Sources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.factories))
	for s := range r.factories {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func newFetcher(cfg config.FetcherConfig, source string, limit config.RateLimitConfig, logger *zap.Logger) *fetcher.Fetcher {
	return fetcher.New(fetcher.Options{
		Source:      source,
		Limits:      fetcher.Limits{MaxRequests: limit.MaxRequests, Per: limit.Per},
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		UserAgent:   cfg.UserAgent,
		Logger:      logger.With(zap.String("source", source)),
	})
}
