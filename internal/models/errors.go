package models

import "errors"

// Error kinds surfaced by the lineage/monitoring components.
// Callers match with errors.Is; messages carry the wrapped detail.
var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrNotFound          = errors.New("not found")
	ErrInvalidParameter  = errors.New("invalid parameter")
)
