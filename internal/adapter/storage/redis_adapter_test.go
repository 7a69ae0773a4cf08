package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisAdapter(t *testing.T) (*miniredis.Miniredis, *RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisAdapter(client)
}

func TestRedisAdapter(t *testing.T) {
	_, adapter := newRedisAdapter(t)
	exerciseRepository(t, adapter)

	tenants, err := adapter.Tenants(context.Background())
	if err != nil {
		t.Fatalf("tenants: %v", err)
	}
	if len(tenants) != 2 {
		t.Errorf("expected 2 tenants, got %v", tenants)
	}
}

func TestRedisAdapter_ConcurrentSaves(t *testing.T) {
	_, adapter := newRedisAdapter(t)
	exerciseConcurrentSaves(t, adapter)
}

func TestRedisAdapter_StoresGenerationBesidePayload(t *testing.T) {
	mr, adapter := newRedisAdapter(t)

	if err := adapter.Save(context.Background(), "mcdonalds", sampleSnapshot("mcdonalds", 7)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mr.HGet("catalog:snapshot:mcdonalds", "generation"); got != "7" {
		t.Errorf("expected generation field 7, got %q", got)
	}
}

func TestRedisAdapter_CorruptPayload(t *testing.T) {
	mr, adapter := newRedisAdapter(t)
	mr.HSet("catalog:snapshot:mcdonalds", "generation", "1", "payload", "{not json")

	if _, err := adapter.Load(context.Background(), "mcdonalds"); err == nil {
		t.Error("expected decode error")
	}
}

func TestRedisAdapter_Unavailable(t *testing.T) {
	mr, adapter := newRedisAdapter(t)
	mr.Close()

	if err := adapter.Save(context.Background(), "mcdonalds", sampleSnapshot("mcdonalds", 1)); err == nil {
		t.Error("expected error when redis is down")
	}
}
