package notifier

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

// LogNotifier writes alerts to the structured log. Used when no broker is
// configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger.With().Str("component", "alerts").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, event domain.StockTransition) error {
	n.log.Warn().
		Str("event_id", event.ID).
		Str("tenant_id", string(event.TenantID)).
		Str("item_id", event.ItemID).
		Str("from", string(event.From)).
		Str("to", string(event.To)).
		Int64("quantity", event.Quantity).
		Int64("threshold", event.Threshold).
		Str("reason", string(event.Reason)).
		Msg("stock alert")
	return nil
}
