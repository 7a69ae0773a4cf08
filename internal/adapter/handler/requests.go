package handler

import (
	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

// Request and response bodies shared by the HTTP and gRPC transports.

type MenuRequest struct {
	Category        string `json:"category,omitempty"`
	Cursor          string `json:"cursor,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	IncludeInactive bool   `json:"include_inactive,omitempty"`
}

type ItemRequest struct {
	ItemID string `json:"item_id"`
}

type RuleRequest struct {
	RuleID string `json:"rule_id"`
}

type Empty struct{}

type AdjustStockRequest struct {
	ItemID string `json:"item_id,omitempty"`
	Delta  int64  `json:"delta"`
}

type SetThresholdRequest struct {
	ItemID    string `json:"item_id,omitempty"`
	Threshold int64  `json:"threshold"`
}

type RuleList struct {
	TenantID domain.TenantID      `json:"tenant_id"`
	Rules    []domain.PricingRule `json:"rules"`
}

type ErrorResponse struct {
	Error   domain.ErrorKind `json:"error"`
	Message string           `json:"message"`
}
