package storage

import (
	"context"
	"sync"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

// MemoryAdapter keeps snapshots in process. It is the default driver and
// loses everything on restart.
type MemoryAdapter struct {
	mu        sync.RWMutex
	snapshots map[domain.TenantID]domain.TenantSnapshot
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{snapshots: make(map[domain.TenantID]domain.TenantSnapshot)}
}

func (m *MemoryAdapter) Load(_ context.Context, tenantID domain.TenantID) (*domain.TenantSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[tenantID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *MemoryAdapter) Save(_ context.Context, tenantID domain.TenantID, snapshot domain.TenantSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.snapshots[tenantID]; ok && current.Generation >= snapshot.Generation {
		return domain.ErrStaleSnapshot
	}
	m.snapshots[tenantID] = snapshot
	return nil
}
