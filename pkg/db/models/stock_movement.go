package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/franchiseops/stockcore/pkg/enums"
)

// StockMovement records an immutable quantity change: qty of a product moved
// at a location for a reason at a time. Positive qty is inbound, negative is
// outbound. Rows are append-only and are never updated or deleted; summing
// qty per (location, product) reconstructs that pair's on-hand.
type StockMovement struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LocationKind  enums.LocationKind  `gorm:"column:location_kind;type:location_kind_enum;not null"`
	LocationID    uuid.UUID           `gorm:"column:location_id;type:uuid;not null"`
	ProductID     uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	Qty           decimal.Decimal     `gorm:"column:qty;type:numeric(14,3);not null"`
	Type          enums.MovementType  `gorm:"column:type;type:movement_type_enum;not null"`
	ReferenceType enums.ReferenceType `gorm:"column:reference_type;not null"`
	ReferenceID   uuid.UUID           `gorm:"column:reference_id;type:uuid;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides GORM's pluralization.
func (StockMovement) TableName() string {
	return "stock_movements"
}
