package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

// Schema creates the snapshot table used by MySQLAdapter.
const Schema = `
CREATE TABLE IF NOT EXISTS tenant_snapshots (
	tenant_id  VARCHAR(64) NOT NULL PRIMARY KEY,
	generation BIGINT UNSIGNED NOT NULL,
	payload    JSON NOT NULL,
	updated_at DATETIME(6) NOT NULL
)`

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create tenant_snapshots: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Load(ctx context.Context, tenantID domain.TenantID) (*domain.TenantSnapshot, error) {
	var payload []byte
	err := m.db.QueryRowContext(ctx, `
		SELECT payload FROM tenant_snapshots WHERE tenant_id = ?`, string(tenantID),
	).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	var snap domain.TenantSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", tenantID, err)
	}
	return &snap, nil
}

// Save locks the tenant row and writes only when the new generation is ahead
// of the stored one.
func (m *MySQLAdapter) Save(ctx context.Context, tenantID domain.TenantID, snapshot domain.TenantSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", tenantID, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var stored uint64
	err = tx.QueryRowContext(ctx, `
		SELECT generation FROM tenant_snapshots WHERE tenant_id = ? FOR UPDATE`, string(tenantID),
	).Scan(&stored)

	now := time.Now().UTC()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tenant_snapshots (tenant_id, generation, payload, updated_at)
			VALUES (?, ?, ?, ?)`,
			string(tenantID), snapshot.Generation, payload, now,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	case err != nil:
		return fmt.Errorf("lock snapshot: %w", err)
	case stored >= snapshot.Generation:
		return domain.ErrStaleSnapshot
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE tenant_snapshots
			SET generation = ?, payload = ?, updated_at = ?
			WHERE tenant_id = ?`,
			snapshot.Generation, payload, now, string(tenantID),
		)
		if err != nil {
			return fmt.Errorf("update snapshot: %w", err)
		}
	}

	return tx.Commit()
}
