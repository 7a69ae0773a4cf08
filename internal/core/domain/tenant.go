package domain

import (
	"fmt"
	"regexp"
)

type TenantID string

var (
	tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
	entityIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,127}$`)
)

// ParseTenantID validates a caller supplied tenant id. It never defaults.
func ParseTenantID(raw string) (TenantID, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	if !tenantIDPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: malformed tenant id %q", ErrValidation, raw)
	}
	return TenantID(raw), nil
}

// ValidateEntityID checks item, rule, modifier and group identifiers.
func ValidateEntityID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s id is required", ErrValidation, kind)
	}
	if !entityIDPattern.MatchString(id) {
		return fmt.Errorf("%w: malformed %s id %q", ErrValidation, kind, id)
	}
	return nil
}
