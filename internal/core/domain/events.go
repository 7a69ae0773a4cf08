package domain

import "time"

type TransitionReason string

const (
	ReasonAdjustment TransitionReason = "adjustment"
	ReasonThreshold  TransitionReason = "threshold"
)

const EventStockStatusChanged = "inventory.status_changed"

type StockTransition struct {
	ID        string           `json:"id"`
	EventType string           `json:"event_type"`
	TenantID  TenantID         `json:"tenant_id"`
	ItemID    string           `json:"item_id"`
	From      StockStatus      `json:"from"`
	To        StockStatus      `json:"to"`
	Quantity  int64            `json:"quantity"`
	Threshold int64            `json:"threshold"`
	Reason    TransitionReason `json:"reason"`
	Timestamp time.Time        `json:"timestamp"`
}
