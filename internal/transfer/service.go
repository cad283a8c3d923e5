// Package transfer composes paired ledger movements into the two stock
// protocols: truck replenishment and order fulfillment, plus purchase
// receiving into a warehouse.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/franchiseops/stockcore/internal/ledger"
	"github.com/franchiseops/stockcore/internal/policy"
	"github.com/franchiseops/stockcore/pkg/config"
	"github.com/franchiseops/stockcore/pkg/db"
	"github.com/franchiseops/stockcore/pkg/enums"
	pkgerrors "github.com/franchiseops/stockcore/pkg/errors"
	"github.com/franchiseops/stockcore/pkg/logger"
	"github.com/franchiseops/stockcore/pkg/metrics"
	"github.com/franchiseops/stockcore/pkg/validators"
)

const retryBackoff = 25 * time.Millisecond

// Service orchestrates multi-location stock operations as all-or-nothing
// units, running policy checks before each guarded write.
type Service interface {
	ReplenishTruck(ctx context.Context, input ReplenishInput) (*ReplenishResult, error)
	FulfillOrderStock(ctx context.Context, input FulfillInput) (*FulfillResult, error)
	ReceivePurchase(ctx context.Context, input ReceiveInput) (*ReceiveResult, error)
}

// productCatalog is the slice of the catalog the coordinator consumes.
type productCatalog interface {
	MaxPerTruck(ctx context.Context, productID uuid.UUID) (*decimal.Decimal, error)
}

// Line is one (product, qty) request within a protocol call.
type Line struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Qty       decimal.Decimal `json:"qty" validate:"dpositive"`
}

// ReplenishInput moves stock from a warehouse onto a truck. ReferenceID is
// optional: callers that may resubmit after a timeout should supply a stable
// one so replayed lines deduplicate instead of double-applying. Products may
// appear at most once per call; a repeated product would collide with its own
// dedup key and silently drop quantity.
type ReplenishInput struct {
	TruckID     uuid.UUID `json:"truck_id" validate:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	ReferenceID uuid.UUID `json:"reference_id"`
	Lines       []Line    `json:"lines" validate:"required,min=1,unique=ProductID,dive"`
}

// ReplenishResult reports how far a replenishment got. With per-line
// atomicity, lines before FailedLine stay committed when the call errors.
type ReplenishResult struct {
	LinesMoved int
	FailedLine *int
}

// FulfillInput consumes stock for a customer order from a single source
// location, either one truck or one warehouse.
type FulfillInput struct {
	SourceKind enums.LocationKind `json:"source_kind" validate:"required"`
	SourceID   uuid.UUID          `json:"source_id" validate:"required"`
	OrderID    uuid.UUID          `json:"order_id" validate:"required"`
	Lines      []Line             `json:"lines" validate:"required,min=1,unique=ProductID,dive"`
}

// FulfillResult reports the movements applied for a fully consumed order.
type FulfillResult struct {
	MovementsApplied int
}

// ReceiveInput records purchased stock arriving at a warehouse.
type ReceiveInput struct {
	WarehouseID     uuid.UUID `json:"warehouse_id" validate:"required"`
	PurchaseOrderID uuid.UUID `json:"purchase_order_id" validate:"required"`
	Lines           []Line    `json:"lines" validate:"required,min=1,unique=ProductID,dive"`
}

// ReceiveResult reports the lines recorded for a purchase delivery.
type ReceiveResult struct {
	LinesReceived int
}

type service struct {
	client  *db.Client
	ledger  ledger.Service
	catalog productCatalog
	cfg     config.LedgerConfig
	metrics *metrics.StockMetrics
	logg    *logger.Logger
}

// NewService wires a transfer coordinator with its collaborators.
func NewService(client *db.Client, ledgerSvc ledger.Service, catalog productCatalog, cfg config.LedgerConfig, stockMetrics *metrics.StockMetrics, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if cfg.ApplyRetryBudget < 0 {
		cfg.ApplyRetryBudget = 0
	}
	return &service{
		client:  client,
		ledger:  ledgerSvc,
		catalog: catalog,
		cfg:     cfg,
		metrics: stockMetrics,
		logg:    logg,
	}, nil
}

func (s *service) ReplenishTruck(ctx context.Context, input ReplenishInput) (*ReplenishResult, error) {
	if err := validators.ValidateStruct(input); err != nil {
		return nil, err
	}
	started := time.Now()
	defer func() {
		s.metrics.ObserveDuration("replenish_truck", time.Since(started))
	}()

	referenceID := input.ReferenceID
	if referenceID == uuid.Nil {
		referenceID = uuid.New()
	}

	if s.logg != nil {
		ctx = s.logg.WithReference(ctx, string(enums.ReferenceTypeReplenishment), referenceID.String())
	}

	if s.cfg.AtomicReplenishment {
		return s.replenishAtomic(ctx, input, referenceID)
	}
	return s.replenishPerLine(ctx, input, referenceID)
}

// replenishPerLine commits each line as its own transaction: a mid-list
// failure leaves earlier lines applied. This mirrors the upstream workflow's
// expectations; AtomicReplenishment switches to full rollback.
func (s *service) replenishPerLine(ctx context.Context, input ReplenishInput, referenceID uuid.UUID) (*ReplenishResult, error) {
	result := &ReplenishResult{}
	for i, line := range input.Lines {
		lineErr := s.retryConflicts(ctx, func(ctx context.Context) error {
			return s.client.WithTx(ctx, func(tx *gorm.DB) error {
				return s.replenishLine(ctx, tx, input, line, referenceID)
			})
		})
		if lineErr != nil {
			failed := i
			result.FailedLine = &failed
			return result, lineErr
		}
		result.LinesMoved++
	}

	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("replenished truck %s with %d lines", input.TruckID, result.LinesMoved))
	}
	return result, nil
}

func (s *service) replenishAtomic(ctx context.Context, input ReplenishInput, referenceID uuid.UUID) (*ReplenishResult, error) {
	result := &ReplenishResult{}
	err := s.retryConflicts(ctx, func(ctx context.Context) error {
		result.LinesMoved = 0
		result.FailedLine = nil
		return s.client.WithTx(ctx, func(tx *gorm.DB) error {
			for i, line := range input.Lines {
				if err := s.replenishLine(ctx, tx, input, line, referenceID); err != nil {
					failed := i
					result.FailedLine = &failed
					return err
				}
				result.LinesMoved++
			}
			return nil
		})
	})
	if err != nil {
		// Full rollback: nothing from this call is committed.
		result.LinesMoved = 0
		return result, err
	}

	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("replenished truck %s with %d lines (atomic)", input.TruckID, result.LinesMoved))
	}
	return result, nil
}

// replenishLine runs both policy checks against tx-visible snapshots, then
// writes the paired movements through the same transaction.
func (s *service) replenishLine(ctx context.Context, tx *gorm.DB, input ReplenishInput, line Line, referenceID uuid.UUID) error {
	maxPerTruck, err := s.catalog.MaxPerTruck(ctx, line.ProductID)
	if err != nil {
		return err
	}

	sourceKey := ledger.PositionKey{
		LocationKind: enums.LocationKindWarehouse,
		LocationID:   input.WarehouseID,
		ProductID:    line.ProductID,
	}
	destKey := ledger.PositionKey{
		LocationKind: enums.LocationKindTruck,
		LocationID:   input.TruckID,
		ProductID:    line.ProductID,
	}

	source, err := s.ledger.GetPositionTx(ctx, tx, sourceKey)
	if err != nil {
		return err
	}
	if err := policy.CheckOutbound(sourceKey.LocationID, line.ProductID, line.Qty, source.OnHand); err != nil {
		return err
	}

	dest, err := s.ledger.GetPositionTx(ctx, tx, destKey)
	if err != nil {
		return err
	}
	if err := policy.CheckInboundCap(destKey.LocationKind, destKey.LocationID, line.ProductID, line.Qty, dest.OnHand, maxPerTruck); err != nil {
		return err
	}

	if _, err := s.ledger.ApplyMovementTx(ctx, tx, ledger.ApplyMovementInput{
		Key:           sourceKey,
		Qty:           line.Qty.Neg(),
		Type:          enums.MovementTypeTransferOut,
		ReferenceType: enums.ReferenceTypeReplenishment,
		ReferenceID:   referenceID,
	}); err != nil {
		return err
	}

	_, err = s.ledger.ApplyMovementTx(ctx, tx, ledger.ApplyMovementInput{
		Key:           destKey,
		Qty:           line.Qty,
		Type:          enums.MovementTypeTransferIn,
		ReferenceType: enums.ReferenceTypeReplenishment,
		ReferenceID:   referenceID,
	})
	return err
}

// FulfillOrderStock consumes every line of an order from its single source in
// one transaction. A failing line aborts the whole step so the caller never
// confirms a partially consumed order.
func (s *service) FulfillOrderStock(ctx context.Context, input FulfillInput) (*FulfillResult, error) {
	if err := validators.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.SourceKind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid source kind %q", input.SourceKind))
	}
	started := time.Now()
	defer func() {
		s.metrics.ObserveDuration("fulfill_order", time.Since(started))
	}()

	if s.logg != nil {
		ctx = s.logg.WithReference(ctx, string(enums.ReferenceTypeCustomerOrder), input.OrderID.String())
	}

	result := &FulfillResult{}
	err := s.retryConflicts(ctx, func(ctx context.Context) error {
		result.MovementsApplied = 0
		return s.client.WithTx(ctx, func(tx *gorm.DB) error {
			for _, line := range input.Lines {
				key := ledger.PositionKey{
					LocationKind: input.SourceKind,
					LocationID:   input.SourceID,
					ProductID:    line.ProductID,
				}

				position, err := s.ledger.GetPositionTx(ctx, tx, key)
				if err != nil {
					return err
				}
				if err := policy.CheckOutbound(key.LocationID, line.ProductID, line.Qty, position.OnHand); err != nil {
					return err
				}

				if _, err := s.ledger.ApplyMovementTx(ctx, tx, ledger.ApplyMovementInput{
					Key:           key,
					Qty:           line.Qty.Neg(),
					Type:          enums.MovementTypeSaleOut,
					ReferenceType: enums.ReferenceTypeCustomerOrder,
					ReferenceID:   input.OrderID,
				}); err != nil {
					return err
				}
				result.MovementsApplied++
			}
			return nil
		})
	})
	if err != nil {
		result.MovementsApplied = 0
		return result, err
	}

	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("consumed %d lines for order %s", result.MovementsApplied, input.OrderID))
	}
	return result, nil
}

// ReceivePurchase records a purchase delivery arriving at a warehouse, one
// inbound movement per line, all in one transaction.
func (s *service) ReceivePurchase(ctx context.Context, input ReceiveInput) (*ReceiveResult, error) {
	if err := validators.ValidateStruct(input); err != nil {
		return nil, err
	}
	started := time.Now()
	defer func() {
		s.metrics.ObserveDuration("receive_purchase", time.Since(started))
	}()

	if s.logg != nil {
		ctx = s.logg.WithReference(ctx, string(enums.ReferenceTypePurchaseOrder), input.PurchaseOrderID.String())
	}

	result := &ReceiveResult{}
	err := s.retryConflicts(ctx, func(ctx context.Context) error {
		result.LinesReceived = 0
		return s.client.WithTx(ctx, func(tx *gorm.DB) error {
			for _, line := range input.Lines {
				if _, err := s.ledger.ApplyMovementTx(ctx, tx, ledger.ApplyMovementInput{
					Key: ledger.PositionKey{
						LocationKind: enums.LocationKindWarehouse,
						LocationID:   input.WarehouseID,
						ProductID:    line.ProductID,
					},
					Qty:           line.Qty,
					Type:          enums.MovementTypePurchaseIn,
					ReferenceType: enums.ReferenceTypePurchaseOrder,
					ReferenceID:   input.PurchaseOrderID,
				}); err != nil {
					return err
				}
				result.LinesReceived++
			}
			return nil
		})
	})
	if err != nil {
		result.LinesReceived = 0
		return result, err
	}
	return result, nil
}

// retryConflicts re-runs one read-check-write sequence after a detected write
// race, within the configured budget. Business rejections pass through.
func (s *service) retryConflicts(ctx context.Context, attempt func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(s.cfg.ApplyRetryBudget), retry.NewConstant(retryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := attempt(ctx)
		if pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict) {
			s.metrics.IncRetry()
			return retry.RetryableError(err)
		}
		return err
	})
}
