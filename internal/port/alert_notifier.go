package port

import (
	"context"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

type AlertNotifier interface {
	// Notify delivers a stock status transition to whoever watches inventory
	Notify(ctx context.Context, event domain.StockTransition) error
}
