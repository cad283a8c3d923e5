package enums

import "fmt"

// MovementType maps to the movement_type_enum enum in Postgres.
type MovementType string

const (
	MovementTypePurchaseIn  MovementType = "purchase_in"
	MovementTypeTransferIn  MovementType = "transfer_in"
	MovementTypeTransferOut MovementType = "transfer_out"
	MovementTypeSaleOut     MovementType = "sale_out"
	MovementTypeAdjustment  MovementType = "adjustment"
)

var validMovementTypes = []MovementType{
	MovementTypePurchaseIn,
	MovementTypeTransferIn,
	MovementTypeTransferOut,
	MovementTypeSaleOut,
	MovementTypeAdjustment,
}

// IsValid reports whether the value matches the canonical movement enum.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsInbound reports whether movements of this type add stock at their location.
func (t MovementType) IsInbound() bool {
	switch t {
	case MovementTypePurchaseIn, MovementTypeTransferIn:
		return true
	default:
		return false
	}
}

// ParseMovementType converts raw input into MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
