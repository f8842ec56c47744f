package db

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/nakatash/pokeca-search/internal/config"
)

func TestConnectRedis_EmptyURL(t *testing.T) {
	client, err := ConnectRedis(context.Background(), config.RedisConfig{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if client != nil {
		t.Fatalf("expected nil client")
	}
}

func TestConnectRedis_Miniredis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := ConnectRedis(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	defer client.Close()
	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("got=%q want v", got)
	}
}
