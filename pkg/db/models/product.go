package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product carries the slice of the catalog the stock core reads: the name
// (for error messages) and the optional per-truck ceiling. The catalog
// service owns the rest of the row.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string           `gorm:"column:sku;not null"`
	Name        string           `gorm:"column:name;not null"`
	MaxPerTruck *decimal.Decimal `gorm:"column:max_per_truck;type:numeric(14,3)"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides GORM's pluralization.
func (Product) TableName() string {
	return "products"
}
