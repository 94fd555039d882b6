package models

import (
	"fmt"
	"strings"
)

// Identifier prefixes; the formats are fixed for compatibility
const (
	RawMaterialLotPrefix  = "RML-"
	BatchPrefix           = "PB-"
	FinishedProductPrefix = "FPL-"
)

// IdentifierKind what a lineage identifier refers to
type IdentifierKind int

const (
	IdentifierProduct IdentifierKind = iota + 1
	IdentifierBatch
)

// ParseLineageID classifies an identifier a lineage walk may start from.
// Only finished-product and batch identifiers are accepted.
func ParseLineageID(id string) (IdentifierKind, error) {
	switch {
	case strings.HasPrefix(id, FinishedProductPrefix):
		return IdentifierProduct, nil
	case strings.HasPrefix(id, BatchPrefix):
		return IdentifierBatch, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
}
