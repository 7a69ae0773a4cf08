package domain

import "time"

type StockStatus string

const (
	StatusInStock    StockStatus = "IN_STOCK"
	StatusLowStock   StockStatus = "LOW_STOCK"
	StatusOutOfStock StockStatus = "OUT_OF_STOCK"
)

// InventoryRecord holds the stock of one menu item. Revision plays the part
// of an optimistic-locking version and grows on every committed change.
// Status is never stored.
type InventoryRecord struct {
	ItemID            string    `json:"item_id"`
	Quantity          int64     `json:"quantity"`
	LowStockThreshold int64     `json:"low_stock_threshold"`
	Revision          uint64    `json:"revision"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (r InventoryRecord) Status() StockStatus {
	return StatusOf(r.Quantity, r.LowStockThreshold)
}

// StatusOf reports LOW_STOCK once quantity reaches the threshold.
func StatusOf(quantity, threshold int64) StockStatus {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity <= threshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}
