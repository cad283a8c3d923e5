package enums

import "fmt"

// ReferenceType identifies the business event a stock movement traces back to.
type ReferenceType string

const (
	ReferenceTypeReplenishment ReferenceType = "Replenishment"
	ReferenceTypeCustomerOrder ReferenceType = "CustomerOrder"
	ReferenceTypePurchaseOrder ReferenceType = "PurchaseOrder"
	ReferenceTypeAdjustment    ReferenceType = "Adjustment"
)

var validReferenceTypes = []ReferenceType{
	ReferenceTypeReplenishment,
	ReferenceTypeCustomerOrder,
	ReferenceTypePurchaseOrder,
	ReferenceTypeAdjustment,
}

// IsValid reports whether the value matches a known reference type.
func (t ReferenceType) IsValid() bool {
	for _, candidate := range validReferenceTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseReferenceType converts raw input into ReferenceType.
func ParseReferenceType(value string) (ReferenceType, error) {
	for _, candidate := range validReferenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reference type %q", value)
}
