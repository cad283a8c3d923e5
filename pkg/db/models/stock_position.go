package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/franchiseops/stockcore/pkg/enums"
)

// StockPosition tracks the current on-hand/reserved quantity of one product
// at one location. Rows are created lazily on first movement into a location
// and are never deleted; a position can sit at zero.
type StockPosition struct {
	LocationKind enums.LocationKind `gorm:"column:location_kind;type:location_kind_enum;primaryKey"`
	LocationID   uuid.UUID          `gorm:"column:location_id;type:uuid;primaryKey"`
	ProductID    uuid.UUID          `gorm:"column:product_id;type:uuid;primaryKey"`
	OnHand       decimal.Decimal    `gorm:"column:on_hand;type:numeric(14,3);not null;default:0"`
	Reserved     decimal.Decimal    `gorm:"column:reserved;type:numeric(14,3);not null;default:0"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides GORM's pluralization.
func (StockPosition) TableName() string {
	return "stock_positions"
}
