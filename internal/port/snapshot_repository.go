package port

import (
	"context"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

type SnapshotRepository interface {
	// Load returns the persisted snapshot of a tenant, or nil if none exists
	Load(ctx context.Context, tenantID domain.TenantID) (*domain.TenantSnapshot, error)

	// Save persists a snapshot, rejecting it with domain.ErrStaleSnapshot when a
	// snapshot of the same or a newer generation is already stored
	Save(ctx context.Context, tenantID domain.TenantID, snapshot domain.TenantSnapshot) error
}
