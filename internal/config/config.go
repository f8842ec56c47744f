package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cron      CronConfig      `mapstructure:"cron"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Collector CollectorConfig `mapstructure:"collector"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	LogLevel        string        `mapstructure:"log_level"`
}

type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// CronConfig holds cron specs (seconds field enabled).
type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Rankings string `mapstructure:"rankings"`
}

type FetcherConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	UserAgent   string        `mapstructure:"user_agent"`
}

type CollectorConfig struct {
	// AutoStart enables continuous mode at process start.
	AutoStart      bool                    `mapstructure:"auto_start" json:"auto_start"`
	Interval       time.Duration           `mapstructure:"interval" json:"interval"`
	MaxCardsPerRun int                     `mapstructure:"max_cards_per_run" json:"max_cards_per_run"`
	PageSize       int                     `mapstructure:"page_size" json:"page_size"`
	PageDelay      time.Duration           `mapstructure:"page_delay" json:"page_delay"`
	SourceDelay    time.Duration           `mapstructure:"source_delay" json:"source_delay"`
	Concurrency    int                     `mapstructure:"concurrency" json:"concurrency"`
	SortBy         string                  `mapstructure:"sort_by" json:"sort_by"`
	Sources        []CollectorSourceConfig `mapstructure:"sources" json:"sources"`
}

type CollectorSourceConfig struct {
	Source   string   `mapstructure:"source" json:"source"`
	Enabled  bool     `mapstructure:"enabled" json:"enabled"`
	Queries  []string `mapstructure:"queries" json:"queries"`
	MaxPages int      `mapstructure:"max_pages" json:"max_pages"`
}

type IngestionConfig struct {
	StockChangeThreshold float64       `mapstructure:"stock_change_threshold"`
	Staleness            time.Duration `mapstructure:"staleness"`
	DefaultCondition     string        `mapstructure:"default_condition"`
}

type RankingConfig struct {
	TopN          int           `mapstructure:"top_n"`
	CurrentWindow time.Duration `mapstructure:"current_window"`
	WindowMargin  time.Duration `mapstructure:"window_margin"`
	DefaultLimit  int           `mapstructure:"default_limit"`
}

type SourcesConfig struct {
	PokemonTCG PokemonTCGConfig `mapstructure:"pokemontcg"`
	CardRush   HTMLSourceConfig `mapstructure:"cardrush"`
	CardLabo   HTMLSourceConfig `mapstructure:"cardlabo"`
	Hareruya2  Hareruya2Config  `mapstructure:"hareruya2"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Per         time.Duration `mapstructure:"per"`
}

type PokemonTCGConfig struct {
	BaseURL   string          `mapstructure:"base_url"`
	APIKey    string          `mapstructure:"api_key"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// Without an API key the upstream allows far fewer requests.
	AnonymousRateLimit RateLimitConfig `mapstructure:"anonymous_rate_limit"`
	USDToJPY           float64         `mapstructure:"usd_to_jpy"`
	EURToJPY           float64         `mapstructure:"eur_to_jpy"`
}

type HTMLSourceConfig struct {
	BaseURL   string          `mapstructure:"base_url"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type Hareruya2Config struct {
	BaseURL   string          `mapstructure:"base_url"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// PriceScale converts the storefront JSON price into yen.
	PriceScale int `mapstructure:"price_scale"`
}

type AuthConfig struct {
	CronSecret string `mapstructure:"cron_secret"`
	AllowLocal bool   `mapstructure:"allow_local"`
}

// LoadDotEnv preloads a .env file into the process environment. A missing
// file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := godotenv.Read(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.Collector.Sources) == 0 {
		cfg.Collector.Sources = DefaultCollectorSources()
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.log_level", "silent")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.cache_ttl", "5m")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.rankings", "0 5 * * * *")

	v.SetDefault("fetcher.timeout", "30s")
	v.SetDefault("fetcher.max_attempts", 3)
	v.SetDefault("fetcher.backoff_base", "1s")
	v.SetDefault("fetcher.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	v.SetDefault("collector.auto_start", false)
	v.SetDefault("collector.interval", "24h")
	v.SetDefault("collector.max_cards_per_run", 2000)
	v.SetDefault("collector.page_size", 20)
	v.SetDefault("collector.page_delay", "1s")
	v.SetDefault("collector.source_delay", "2s")
	v.SetDefault("collector.concurrency", 1)
	v.SetDefault("collector.sort_by", "newest")

	v.SetDefault("ingestion.stock_change_threshold", 0.5)
	v.SetDefault("ingestion.staleness", "1h")
	v.SetDefault("ingestion.default_condition", "NM")

	v.SetDefault("ranking.top_n", 100)
	v.SetDefault("ranking.current_window", "1h")
	v.SetDefault("ranking.window_margin", "1h")
	v.SetDefault("ranking.default_limit", 50)

	v.SetDefault("sources.pokemontcg.base_url", "https://api.pokemontcg.io/v2")
	v.SetDefault("sources.pokemontcg.api_key", "")
	v.SetDefault("sources.pokemontcg.rate_limit.max_requests", 1000)
	v.SetDefault("sources.pokemontcg.rate_limit.per", "60s")
	v.SetDefault("sources.pokemontcg.anonymous_rate_limit.max_requests", 250)
	v.SetDefault("sources.pokemontcg.anonymous_rate_limit.per", "60s")
	v.SetDefault("sources.pokemontcg.usd_to_jpy", 150)
	v.SetDefault("sources.pokemontcg.eur_to_jpy", 180)
	v.SetDefault("sources.cardrush.base_url", "https://www.cardrush-pokemon.jp")
	v.SetDefault("sources.cardrush.rate_limit.max_requests", 1)
	v.SetDefault("sources.cardrush.rate_limit.per", "3s")
	v.SetDefault("sources.cardlabo.base_url", "https://www.c-labo-online.jp")
	v.SetDefault("sources.cardlabo.rate_limit.max_requests", 1)
	v.SetDefault("sources.cardlabo.rate_limit.per", "3s")
	v.SetDefault("sources.hareruya2.base_url", "https://www.hareruya2.com")
	v.SetDefault("sources.hareruya2.rate_limit.max_requests", 1)
	v.SetDefault("sources.hareruya2.rate_limit.per", "2s")
	v.SetDefault("sources.hareruya2.price_scale", 100)

	v.SetDefault("auth.cron_secret", "")
	v.SetDefault("auth.allow_local", true)
}

// DefaultCollectorSources mirrors the shipped query plan: the English API
// gets English search terms and more pages, the Japanese storefronts get
// katakana terms.
func DefaultCollectorSources() []CollectorSourceConfig {
	jp := []string{"リザードン", "ピカチュウ", "ex", "vstar", "vmax"}
	return []CollectorSourceConfig{
		{
			Source:   "pokemontcg",
			Enabled:  true,
			Queries:  []string{"Charizard", "Pikachu", "ex", "vstar", "vmax", "Mew", "Rayquaza", "Lucario"},
			MaxPages: 5,
		},
		{Source: "cardrush", Enabled: true, Queries: append([]string(nil), jp...), MaxPages: 3},
		{Source: "hareruya2", Enabled: true, Queries: append([]string(nil), jp...), MaxPages: 3},
		{Source: "cardlabo", Enabled: true, Queries: append([]string(nil), jp...), MaxPages: 3},
	}
}
