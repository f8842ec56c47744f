// Package cache keeps ranking reads in redis between rebuilds.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/repository"
)

const (
	keyPrefix  = "rankings:"
	defaultTTL = 5 * time.Minute
)

// RankingCache stores ranking rows as JSON keyed by type and limit. Redis
// failures are logged and treated as misses.
type RankingCache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *zap.Logger
}

func NewRankingCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RankingCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RankingCache{Client: client, TTL: ttl, Logger: logger}
}

func rankingKey(rankingType string, limit int) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, rankingType, limit)
}

func (c *RankingCache) GetRanking(ctx context.Context, rankingType string, limit int) ([]repository.RankingRow, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}
	b, err := c.Client.Get(ctx, rankingKey(rankingType, limit)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.warn("ranking cache get failed", rankingType, err)
		return nil, false
	}
	var rows []repository.RankingRow
	if err := json.Unmarshal(b, &rows); err != nil {
		c.warn("ranking cache decode failed", rankingType, err)
		return nil, false
	}
	return rows, true
}

func (c *RankingCache) SetRanking(ctx context.Context, rankingType string, limit int, rows []repository.RankingRow) {
	if c == nil || c.Client == nil {
		return
	}
	if rows == nil {
		rows = []repository.RankingRow{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		c.warn("ranking cache encode failed", rankingType, err)
		return
	}
	if err := c.Client.Set(ctx, rankingKey(rankingType, limit), b, c.TTL).Err(); err != nil {
		c.warn("ranking cache set failed", rankingType, err)
	}
}

// InvalidateRanking drops every cached limit of rankingType.
func (c *RankingCache) InvalidateRanking(ctx context.Context, rankingType string) {
	if c == nil || c.Client == nil {
		return
	}
	iter := c.Client.Scan(ctx, 0, keyPrefix+rankingType+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.warn("ranking cache scan failed", rankingType, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.Client.Del(ctx, keys...).Err(); err != nil {
		c.warn("ranking cache delete failed", rankingType, err)
	}
}

func (c *RankingCache) warn(msg, rankingType string, err error) {
	if c.Logger != nil {
		c.Logger.Warn(msg, zap.String("type", rankingType), zap.Error(err))
	}
}
