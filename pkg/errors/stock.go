package errors

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InsufficientStockDetails carries the quantities a caller needs to render an
// actionable message when an outbound movement is rejected.
type InsufficientStockDetails struct {
	ProductID  uuid.UUID       `json:"product_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Available  decimal.Decimal `json:"available"`
	Requested  decimal.Decimal `json:"requested"`
}

// CapacityExceededDetails carries the cap context when a truck inbound
// movement would exceed the product's per-truck ceiling.
type CapacityExceededDetails struct {
	ProductID uuid.UUID       `json:"product_id"`
	TruckID   uuid.UUID       `json:"truck_id"`
	Max       decimal.Decimal `json:"max"`
	Current   decimal.Decimal `json:"current"`
	Requested decimal.Decimal `json:"requested"`
}

// NewInsufficientStock builds the typed rejection for an outbound request
// that exceeds what a location has on hand.
func NewInsufficientStock(d InsufficientStockDetails) *Error {
	msg := fmt.Sprintf("insufficient stock for product %s (available %s, requested %s)",
		d.ProductID, d.Available, d.Requested)
	return New(CodeInsufficientStock, msg).WithDetails(d)
}

// NewCapacityExceeded builds the typed rejection for a truck inbound request
// that would push the truck past the product's configured cap.
func NewCapacityExceeded(d CapacityExceededDetails) *Error {
	msg := fmt.Sprintf("max %s per truck for product %s (current %s, adding %s)",
		d.Max, d.ProductID, d.Current, d.Requested)
	return New(CodeCapacityExceeded, msg).WithDetails(d)
}
