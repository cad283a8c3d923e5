package db

import "strings"

// ConstraintMovementReference is the uniqueness constraint that deduplicates
// movements by (reference_type, reference_id, location, product, type).
const ConstraintMovementReference = "uq_stock_movements_reference"

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
