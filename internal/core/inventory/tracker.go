package inventory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/core/tenant"
	"github.com/rl1809/tenant-catalog/internal/port"
)

type Tracker struct {
	store    *tenant.Store
	notifier port.AlertNotifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewTracker(store *tenant.Store, notifier port.AlertNotifier, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		notifier: notifier,
		log:      logger.With().Str("component", "inventory").Logger(),
		now:      time.Now,
	}
}

// AdjustStock applies delta to the item's quantity. A result below zero fails
// with ErrInsufficientStock and changes nothing.
func (t *Tracker) AdjustStock(ctx context.Context, tenantID domain.TenantID, itemID string, delta int64) (domain.InventoryRecord, error) {
	return t.store.UpdateInventory(tenantID, itemID, func(cur domain.InventoryRecord) (domain.InventoryRecord, error) {
		if delta > 0 && cur.Quantity > math.MaxInt64-delta {
			return cur, fmt.Errorf("%w: stock of %s would overflow", domain.ErrValidation, itemID)
		}
		if cur.Quantity+delta < 0 {
			return cur, fmt.Errorf("%w: %s has %d, adjustment %d", domain.ErrInsufficientStock, itemID, cur.Quantity, delta)
		}
		cur.Quantity += delta
		return cur, nil
	}, t.emitOnTransition(ctx, tenantID, domain.ReasonAdjustment))
}

func (t *Tracker) SetThreshold(ctx context.Context, tenantID domain.TenantID, itemID string, threshold int64) (domain.InventoryRecord, error) {
	if threshold < 0 {
		return domain.InventoryRecord{}, fmt.Errorf("%w: threshold must not be negative", domain.ErrValidation)
	}
	return t.store.UpdateInventory(tenantID, itemID, func(cur domain.InventoryRecord) (domain.InventoryRecord, error) {
		cur.LowStockThreshold = threshold
		return cur, nil
	}, t.emitOnTransition(ctx, tenantID, domain.ReasonThreshold))
}

// GetStatus derives the status from the live record; nothing is cached.
func (t *Tracker) GetStatus(tenantID domain.TenantID, itemID string) (domain.StockStatus, error) {
	rec, err := t.store.InventoryRecord(tenantID, itemID)
	if err != nil {
		return "", err
	}
	return rec.Status(), nil
}

func (t *Tracker) emitOnTransition(ctx context.Context, tenantID domain.TenantID, reason domain.TransitionReason) tenant.CommitHook {
	return func(before, after domain.InventoryRecord) {
		from, to := before.Status(), after.Status()
		if from == to {
			return
		}

		event := domain.StockTransition{
			ID:        uuid.NewString(),
			EventType: domain.EventStockStatusChanged,
			TenantID:  tenantID,
			ItemID:    after.ItemID,
			From:      from,
			To:        to,
			Quantity:  after.Quantity,
			Threshold: after.LowStockThreshold,
			Reason:    reason,
			Timestamp: t.now(),
		}

		t.log.Info().
			Str("tenant_id", string(tenantID)).
			Str("item_id", after.ItemID).
			Str("from", string(from)).
			Str("to", string(to)).
			Int64("quantity", after.Quantity).
			Msg("stock status changed")

		if t.notifier == nil {
			return
		}
		if err := t.notifier.Notify(ctx, event); err != nil {
			t.log.Error().Err(err).
				Str("tenant_id", string(tenantID)).
				Str("item_id", after.ItemID).
				Str("event_id", event.ID).
				Msg("failed to deliver stock alert")
		}
	}
}
