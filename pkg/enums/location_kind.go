package enums

import "fmt"

// LocationKind maps to the location_kind_enum enum in Postgres. Stock lives
// either in a fixed warehouse or on a deployed truck.
type LocationKind string

const (
	LocationKindWarehouse LocationKind = "warehouse"
	LocationKindTruck     LocationKind = "truck"
)

var validLocationKinds = []LocationKind{
	LocationKindWarehouse,
	LocationKindTruck,
}

// IsValid reports whether the value matches the canonical location kind enum.
func (k LocationKind) IsValid() bool {
	for _, candidate := range validLocationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseLocationKind converts raw input into LocationKind.
func ParseLocationKind(value string) (LocationKind, error) {
	for _, candidate := range validLocationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid location kind %q", value)
}
