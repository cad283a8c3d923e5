// Package policy holds the pure quantity checks evaluated before a movement
// commits. The checks guard against a snapshot read just before the atomic
// write; the ledger's own non-negativity check remains the last line of
// defense against races.
package policy

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/franchiseops/stockcore/pkg/enums"
	pkgerrors "github.com/franchiseops/stockcore/pkg/errors"
)

// CheckOutbound validates that requested quantity does not exceed what the
// location currently has on hand.
func CheckOutbound(locationID, productID uuid.UUID, requested, currentOnHand decimal.Decimal) error {
	if !requested.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "requested qty must be positive")
	}
	if currentOnHand.LessThan(requested) {
		return pkgerrors.NewInsufficientStock(pkgerrors.InsufficientStockDetails{
			ProductID:  productID,
			LocationID: locationID,
			Available:  currentOnHand,
			Requested:  requested,
		})
	}
	return nil
}

// CheckInboundCap validates a truck inbound against the product's optional
// per-truck ceiling. Warehouses are uncapped; a nil cap means no ceiling.
func CheckInboundCap(kind enums.LocationKind, locationID, productID uuid.UUID, requested, currentOnHand decimal.Decimal, maxPerTruck *decimal.Decimal) error {
	if !requested.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "requested qty must be positive")
	}
	if kind != enums.LocationKindTruck || maxPerTruck == nil {
		return nil
	}
	if currentOnHand.Add(requested).GreaterThan(*maxPerTruck) {
		return pkgerrors.NewCapacityExceeded(pkgerrors.CapacityExceededDetails{
			ProductID: productID,
			TruckID:   locationID,
			Max:       *maxPerTruck,
			Current:   currentOnHand,
			Requested: requested,
		})
	}
	return nil
}
