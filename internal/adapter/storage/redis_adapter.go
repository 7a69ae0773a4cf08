package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

const (
	snapshotKeyPrefix = "catalog:snapshot:"
	tenantSetKey      = "catalog:tenants"
)

// saveSnapshotScript writes the snapshot only if it is newer than the stored
// one. Returns 1 on write, 0 when the stored generation is not older.
var saveSnapshotScript = redis.NewScript(`
local key = KEYS[1]
local generation = tonumber(ARGV[1])

local current = redis.call('HGET', key, 'generation')
if current and tonumber(current) >= generation then
	return 0
end

redis.call('HSET', key, 'generation', ARGV[1], 'payload', ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
return 1
`)

// RedisAdapter keeps one hash per tenant holding the JSON snapshot and its
// generation.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Load(ctx context.Context, tenantID domain.TenantID) (*domain.TenantSnapshot, error) {
	payload, err := r.client.HGet(ctx, snapshotKeyPrefix+string(tenantID), "payload").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", tenantID, err)
	}

	var snap domain.TenantSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", tenantID, err)
	}
	return &snap, nil
}

func (r *RedisAdapter) Save(ctx context.Context, tenantID domain.TenantID, snapshot domain.TenantSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", tenantID, err)
	}

	keys := []string{snapshotKeyPrefix + string(tenantID), tenantSetKey}
	written, err := saveSnapshotScript.Run(ctx, r.client, keys, snapshot.Generation, payload, string(tenantID)).Int()
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", tenantID, err)
	}
	if written == 0 {
		return domain.ErrStaleSnapshot
	}
	return nil
}

// Tenants lists every tenant that has a stored snapshot.
func (r *RedisAdapter) Tenants(ctx context.Context) ([]domain.TenantID, error) {
	members, err := r.client.SMembers(ctx, tenantSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	ids := make([]domain.TenantID, 0, len(members))
	for _, m := range members {
		ids = append(ids, domain.TenantID(m))
	}
	return ids, nil
}
