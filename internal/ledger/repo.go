package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/franchiseops/stockcore/pkg/db/models"
	"github.com/franchiseops/stockcore/pkg/enums"
	"github.com/franchiseops/stockcore/pkg/pagination"
)

// PositionKey identifies one (location, product) pair.
type PositionKey struct {
	LocationKind enums.LocationKind
	LocationID   uuid.UUID
	ProductID    uuid.UUID
}

// MovementFilter narrows ListMovements. Zero-value fields are ignored.
type MovementFilter struct {
	LocationKind enums.LocationKind
	LocationID   uuid.UUID
	ProductID    uuid.UUID
	Type         enums.MovementType
	ReferenceID  uuid.UUID
}

// Repository manages persistence for stock positions and movements. It is the
// only component allowed to mutate on-hand quantities.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetPosition(ctx context.Context, key PositionKey) (*models.StockPosition, error)
	GetPositionForUpdate(ctx context.Context, key PositionKey) (*models.StockPosition, bool, error)
	CreatePosition(ctx context.Context, position *models.StockPosition) error
	UpdatePositionQuantities(ctx context.Context, position *models.StockPosition) error
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	GetMovement(ctx context.Context, id uuid.UUID) (*models.StockMovement, error)
	FindMovementByReference(ctx context.Context, refType enums.ReferenceType, refID uuid.UUID, key PositionKey, movementType enums.MovementType) (*models.StockMovement, error)
	ListMovements(ctx context.Context, filter MovementFilter, limit int, cursor *pagination.Cursor) ([]models.StockMovement, error)
	SumMovements(ctx context.Context, key PositionKey, until *time.Time) (decimal.Decimal, error)
	ListPositions(ctx context.Context, kind enums.LocationKind, locationID uuid.UUID) ([]models.StockPosition, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetPosition(ctx context.Context, key PositionKey) (*models.StockPosition, error) {
	position, found, err := r.findPosition(ctx, key, false)
	if err != nil {
		return nil, err
	}
	if !found {
		return emptyPosition(key), nil
	}
	return position, nil
}

func (r *repository) GetPositionForUpdate(ctx context.Context, key PositionKey) (*models.StockPosition, bool, error) {
	return r.findPosition(ctx, key, true)
}

func (r *repository) findPosition(ctx context.Context, key PositionKey, lock bool) (*models.StockPosition, bool, error) {
	query := r.db.WithContext(ctx).
		Where("location_kind = ? AND location_id = ? AND product_id = ?",
			key.LocationKind, key.LocationID, key.ProductID)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var position models.StockPosition
	if err := query.First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &position, true, nil
}

func (r *repository) CreatePosition(ctx context.Context, position *models.StockPosition) error {
	return r.db.WithContext(ctx).Create(position).Error
}

func (r *repository) UpdatePositionQuantities(ctx context.Context, position *models.StockPosition) error {
	return r.db.WithContext(ctx).
		Model(&models.StockPosition{}).
		Where("location_kind = ? AND location_id = ? AND product_id = ?",
			position.LocationKind, position.LocationID, position.ProductID).
		Updates(map[string]any{
			"on_hand":  position.OnHand,
			"reserved": position.Reserved,
		}).Error
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) GetMovement(ctx context.Context, id uuid.UUID) (*models.StockMovement, error) {
	var movement models.StockMovement
	if err := r.db.WithContext(ctx).First(&movement, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

func (r *repository) FindMovementByReference(ctx context.Context, refType enums.ReferenceType, refID uuid.UUID, key PositionKey, movementType enums.MovementType) (*models.StockMovement, error) {
	var movement models.StockMovement
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Where("location_kind = ? AND location_id = ? AND product_id = ?",
			key.LocationKind, key.LocationID, key.ProductID).
		Where("type = ?", movementType).
		First(&movement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movement, nil
}

func (r *repository) ListMovements(ctx context.Context, filter MovementFilter, limit int, cursor *pagination.Cursor) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovement{})

	if filter.LocationKind != "" {
		query = query.Where("location_kind = ?", filter.LocationKind)
	}
	if filter.LocationID != uuid.Nil {
		query = query.Where("location_id = ?", filter.LocationID)
	}
	if filter.ProductID != uuid.Nil {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.ReferenceID != uuid.Nil {
		query = query.Where("reference_id = ?", filter.ReferenceID)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var movements []models.StockMovement
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) SumMovements(ctx context.Context, key PositionKey, until *time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("location_kind = ? AND location_id = ? AND product_id = ?",
			key.LocationKind, key.LocationID, key.ProductID)
	if until != nil {
		query = query.Where("created_at <= ?", *until)
	}

	var raw *string
	if err := query.Select("SUM(qty)").Scan(&raw).Error; err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

func (r *repository) ListPositions(ctx context.Context, kind enums.LocationKind, locationID uuid.UUID) ([]models.StockPosition, error) {
	query := r.db.WithContext(ctx).Model(&models.StockPosition{})
	if kind != "" {
		query = query.Where("location_kind = ?", kind)
	}
	if locationID != uuid.Nil {
		query = query.Where("location_id = ?", locationID)
	}

	var positions []models.StockPosition
	if err := query.Order("updated_at DESC").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func emptyPosition(key PositionKey) *models.StockPosition {
	return &models.StockPosition{
		LocationKind: key.LocationKind,
		LocationID:   key.LocationID,
		ProductID:    key.ProductID,
		OnHand:       decimal.Zero,
		Reserved:     decimal.Zero,
	}
}
