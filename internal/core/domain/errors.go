package domain

import "errors"

var (
	// ErrTenantNotFound is only raised when the store runs in strict mode.
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrRuleNotFound      = errors.New("pricing rule not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidRule       = errors.New("invalid pricing rule")
	ErrValidation        = errors.New("validation error")
	ErrStaleSnapshot     = errors.New("stale snapshot")
)

type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindTenantNotFound    ErrorKind = "tenant_not_found"
	KindItemNotFound      ErrorKind = "item_not_found"
	KindRuleNotFound      ErrorKind = "rule_not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindInvalidRule       ErrorKind = "invalid_rule"
	KindValidation        ErrorKind = "validation_error"
	KindInternal          ErrorKind = "internal"
)

// KindOf classifies err so transports can map every failure the same way.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTenantNotFound):
		return KindTenantNotFound
	case errors.Is(err, ErrItemNotFound):
		return KindItemNotFound
	case errors.Is(err, ErrRuleNotFound):
		return KindRuleNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrInvalidRule):
		return KindInvalidRule
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}
