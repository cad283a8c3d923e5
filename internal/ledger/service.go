package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/franchiseops/stockcore/pkg/db"
	"github.com/franchiseops/stockcore/pkg/db/models"
	"github.com/franchiseops/stockcore/pkg/enums"
	pkgerrors "github.com/franchiseops/stockcore/pkg/errors"
	"github.com/franchiseops/stockcore/pkg/logger"
	"github.com/franchiseops/stockcore/pkg/metrics"
	"github.com/franchiseops/stockcore/pkg/pagination"
)

// Service is the ledger store: the single write path for stock quantities.
// Every quantity change commits a position update and a movement row in one
// atomic unit, serialized per (location, product) key.
type Service interface {
	GetPosition(ctx context.Context, key PositionKey) (*models.StockPosition, error)
	GetPositionTx(ctx context.Context, tx *gorm.DB, key PositionKey) (*models.StockPosition, error)
	ApplyMovement(ctx context.Context, input ApplyMovementInput) (*models.StockMovement, error)
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, input ApplyMovementInput) (*models.StockMovement, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.StockMovement, error)
	Reserve(ctx context.Context, key PositionKey, qty decimal.Decimal) error
	Release(ctx context.Context, key PositionKey, qty decimal.Decimal) error
	GetMovement(ctx context.Context, id uuid.UUID) (*models.StockMovement, error)
	ListMovements(ctx context.Context, filter MovementFilter, params pagination.Params) (*MovementPage, error)
}

// ApplyMovementInput captures one signed quantity change. Positive qty is
// inbound, negative outbound; the sign must agree with the movement type.
type ApplyMovementInput struct {
	Key           PositionKey
	Qty           decimal.Decimal
	Type          enums.MovementType
	ReferenceType enums.ReferenceType
	ReferenceID   uuid.UUID
}

// AdjustInput corrects a position by a signed delta outside the transfer
// protocols, still recorded as a movement so replay stays exact.
type AdjustInput struct {
	Key         PositionKey
	Delta       decimal.Decimal
	ReferenceID uuid.UUID
}

// MovementPage is one cursor page of the movement log, newest first.
type MovementPage struct {
	Movements  []models.StockMovement
	NextCursor string
}

type service struct {
	client  *db.Client
	repo    Repository
	metrics *metrics.StockMetrics
	logg    *logger.Logger
}

// NewService wires a ledger service with the provided store dependencies.
func NewService(client *db.Client, repo Repository, stockMetrics *metrics.StockMetrics, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{
		client:  client,
		repo:    repo,
		metrics: stockMetrics,
		logg:    logg,
	}, nil
}

func (s *service) GetPosition(ctx context.Context, key PositionKey) (*models.StockPosition, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return s.repo.GetPosition(ctx, key)
}

// GetPositionTx reads a position through a caller-owned transaction so
// multi-line operations see their own uncommitted writes.
func (s *service) GetPositionTx(ctx context.Context, tx *gorm.DB, key PositionKey) (*models.StockPosition, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if tx == nil {
		return s.repo.GetPosition(ctx, key)
	}
	return s.repo.WithTx(tx).GetPosition(ctx, key)
}

func (s *service) ApplyMovement(ctx context.Context, input ApplyMovementInput) (*models.StockMovement, error) {
	if err := validateApply(input); err != nil {
		return nil, err
	}

	var movement *models.StockMovement
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		applied, txErr := s.applyLocked(ctx, s.repo.WithTx(tx), input)
		if txErr != nil {
			return txErr
		}
		movement = applied
		return nil
	})
	if err != nil {
		s.countRejected(input.Type, err)
		return nil, err
	}

	s.metrics.IncApplied(string(input.Type))
	return movement, nil
}

// ApplyMovementTx applies a movement inside a caller-owned transaction so the
// coordinator can pair movements, or wrap a whole replenishment, atomically.
func (s *service) ApplyMovementTx(ctx context.Context, tx *gorm.DB, input ApplyMovementInput) (*models.StockMovement, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validateApply(input); err != nil {
		return nil, err
	}

	movement, err := s.applyLocked(ctx, s.repo.WithTx(tx), input)
	if err != nil {
		s.countRejected(input.Type, err)
		return nil, err
	}
	s.metrics.IncApplied(string(input.Type))
	return movement, nil
}

// applyLocked holds the row lock for the (location, product) key across the
// read-check-write. Deduplication by (referenceType, referenceId, key, type)
// makes a replayed call return the movement recorded the first time.
func (s *service) applyLocked(ctx context.Context, repo Repository, input ApplyMovementInput) (*models.StockMovement, error) {
	existing, err := repo.FindMovementByReference(ctx, input.ReferenceType, input.ReferenceID, input.Key, input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up movement reference")
	}
	if existing != nil {
		s.metrics.IncDeduplicated(string(input.Type))
		return existing, nil
	}

	position, found, err := repo.GetPositionForUpdate(ctx, input.Key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking stock position")
	}
	if !found {
		position = emptyPosition(input.Key)
	}

	newOnHand := position.OnHand.Add(input.Qty)
	if newOnHand.IsNegative() {
		return nil, pkgerrors.NewInsufficientStock(pkgerrors.InsufficientStockDetails{
			ProductID:  input.Key.ProductID,
			LocationID: input.Key.LocationID,
			Available:  position.OnHand,
			Requested:  input.Qty.Abs(),
		})
	}
	position.OnHand = newOnHand

	if found {
		err = repo.UpdatePositionQuantities(ctx, position)
	} else {
		err = repo.CreatePosition(ctx, position)
		if db.IsUniqueViolation(err, "") {
			// Two first movements raced on the lazy create; one of them
			// must re-read and go again.
			return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "position created concurrently")
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting stock position")
	}

	movement := &models.StockMovement{
		ID:            uuid.New(),
		LocationKind:  input.Key.LocationKind,
		LocationID:    input.Key.LocationID,
		ProductID:     input.Key.ProductID,
		Qty:           input.Qty,
		Type:          input.Type,
		ReferenceType: input.ReferenceType,
		ReferenceID:   input.ReferenceID,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		if db.IsUniqueViolation(err, db.ConstraintMovementReference) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "movement recorded concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "appending stock movement")
	}
	return movement, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.StockMovement, error) {
	if input.Delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta must be non-zero")
	}
	referenceID := input.ReferenceID
	if referenceID == uuid.Nil {
		referenceID = uuid.New()
	}
	return s.ApplyMovement(ctx, ApplyMovementInput{
		Key:           input.Key,
		Qty:           input.Delta,
		Type:          enums.MovementTypeAdjustment,
		ReferenceType: enums.ReferenceTypeAdjustment,
		ReferenceID:   referenceID,
	})
}

func (s *service) Reserve(ctx context.Context, key PositionKey, qty decimal.Decimal) error {
	return s.shiftReserved(ctx, key, qty, false)
}

func (s *service) Release(ctx context.Context, key PositionKey, qty decimal.Decimal) error {
	return s.shiftReserved(ctx, key, qty, true)
}

// shiftReserved earmarks (or frees) quantity without a movement: reserved
// tracks intent, on-hand only changes through movements.
func (s *service) shiftReserved(ctx context.Context, key PositionKey, qty decimal.Decimal, release bool) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if !qty.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		position, found, err := repo.GetPositionForUpdate(ctx, key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking stock position")
		}
		if !found {
			position = emptyPosition(key)
		}

		if release {
			if position.Reserved.LessThan(qty) {
				return pkgerrors.New(pkgerrors.CodeConflict, "releasing more than reserved")
			}
			position.Reserved = position.Reserved.Sub(qty)
		} else {
			newReserved := position.Reserved.Add(qty)
			if newReserved.GreaterThan(position.OnHand) {
				return pkgerrors.NewInsufficientStock(pkgerrors.InsufficientStockDetails{
					ProductID:  key.ProductID,
					LocationID: key.LocationID,
					Available:  position.OnHand.Sub(position.Reserved),
					Requested:  qty,
				})
			}
			position.Reserved = newReserved
		}

		if found {
			return repo.UpdatePositionQuantities(ctx, position)
		}
		return repo.CreatePosition(ctx, position)
	})
}

func (s *service) GetMovement(ctx context.Context, id uuid.UUID) (*models.StockMovement, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement id is required")
	}
	movement, err := s.repo.GetMovement(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "movement not found")
	}
	return movement, nil
}

func (s *service) ListMovements(ctx context.Context, filter MovementFilter, params pagination.Params) (*MovementPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	movements, err := s.repo.ListMovements(ctx, filter, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing movements")
	}

	page := &MovementPage{Movements: movements}
	if len(movements) > limit {
		page.Movements = movements[:limit]
		last := page.Movements[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (s *service) countRejected(movementType enums.MovementType, err error) {
	if typed := pkgerrors.As(err); typed != nil {
		s.metrics.IncRejected(string(movementType), string(typed.Code()))
		return
	}
	s.metrics.IncRejected(string(movementType), string(pkgerrors.CodeInternal))
}

func validateKey(key PositionKey) error {
	if !key.LocationKind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid location kind %q", key.LocationKind))
	}
	if key.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if key.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return nil
}

func validateApply(input ApplyMovementInput) error {
	if err := validateKey(input.Key); err != nil {
		return err
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement type %q", input.Type))
	}
	if !input.ReferenceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid reference type %q", input.ReferenceType))
	}
	if input.ReferenceID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}
	if input.Qty.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "movement qty must be non-zero")
	}

	// adjustments carry either sign; everything else must match its direction
	if input.Type == enums.MovementTypeAdjustment {
		return nil
	}
	if input.Type.IsInbound() {
		if input.Qty.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s movements must carry positive qty", input.Type))
		}
		return nil
	}
	if input.Qty.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s movements must carry negative qty", input.Type))
	}
	return nil
}
