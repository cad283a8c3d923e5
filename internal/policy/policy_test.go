package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/franchiseops/stockcore/pkg/enums"
	pkgerrors "github.com/franchiseops/stockcore/pkg/errors"
)

func TestCheckOutbound(t *testing.T) {
	locationID := uuid.New()
	productID := uuid.New()

	tests := []struct {
		name      string
		requested string
		onHand    string
		wantCode  pkgerrors.Code
	}{
		{name: "exact availability passes", requested: "20", onHand: "20"},
		{name: "less than available passes", requested: "5", onHand: "20"},
		{name: "more than available fails", requested: "25", onHand: "20", wantCode: pkgerrors.CodeInsufficientStock},
		{name: "anything against zero fails", requested: "0.001", onHand: "0", wantCode: pkgerrors.CodeInsufficientStock},
		{name: "zero request invalid", requested: "0", onHand: "20", wantCode: pkgerrors.CodeValidation},
		{name: "negative request invalid", requested: "-3", onHand: "20", wantCode: pkgerrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOutbound(locationID, productID, mustDecimal(t, tt.requested), mustDecimal(t, tt.onHand))
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !pkgerrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected code %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestCheckOutboundDetailsCarryQuantities(t *testing.T) {
	locationID := uuid.New()
	productID := uuid.New()

	err := CheckOutbound(locationID, productID, decimal.NewFromInt(25), decimal.NewFromInt(20))
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(pkgerrors.InsufficientStockDetails)
	if !ok {
		t.Fatalf("expected insufficient stock details, got %T", typed.Details())
	}
	if !details.Available.Equal(decimal.NewFromInt(20)) || !details.Requested.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.ProductID != productID || details.LocationID != locationID {
		t.Fatalf("details identifiers mismatch: %+v", details)
	}
}

func TestCheckInboundCap(t *testing.T) {
	truckID := uuid.New()
	productID := uuid.New()
	cap100 := decimal.NewFromInt(100)

	tests := []struct {
		name      string
		kind      enums.LocationKind
		requested string
		onHand    string
		max       *decimal.Decimal
		wantCode  pkgerrors.Code
	}{
		{name: "no cap configured passes", kind: enums.LocationKindTruck, requested: "500", onHand: "0"},
		{name: "warehouse destination uncapped", kind: enums.LocationKindWarehouse, requested: "500", onHand: "0", max: &cap100},
		{name: "under cap passes", kind: enums.LocationKindTruck, requested: "30", onHand: "60", max: &cap100},
		{name: "exactly at cap passes", kind: enums.LocationKindTruck, requested: "40", onHand: "60", max: &cap100},
		{name: "over cap fails", kind: enums.LocationKindTruck, requested: "41", onHand: "60", max: &cap100, wantCode: pkgerrors.CodeCapacityExceeded},
		{name: "zero request invalid", kind: enums.LocationKindTruck, requested: "0", onHand: "0", max: &cap100, wantCode: pkgerrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInboundCap(tt.kind, truckID, productID, mustDecimal(t, tt.requested), mustDecimal(t, tt.onHand), tt.max)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !pkgerrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected code %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}
