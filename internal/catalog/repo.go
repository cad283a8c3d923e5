// Package catalog reads the slice of the product catalog the stock core
// depends on. The catalog itself is owned elsewhere; this adapter only
// resolves products and their per-truck ceilings.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/franchiseops/stockcore/internal/repo"
	"github.com/franchiseops/stockcore/pkg/db/models"
	pkgerrors "github.com/franchiseops/stockcore/pkg/errors"
)

// Repository resolves catalog products for the transfer coordinator.
type Repository interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	MaxPerTruck(ctx context.Context, productID uuid.UUID) (*decimal.Decimal, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var product models.Product
	if err := r.base.DB(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidReference,
				fmt.Sprintf("unknown product %s", productID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return &product, nil
}

// MaxPerTruck returns the product's per-truck ceiling, or nil when the
// product carries no cap.
func (r *repository) MaxPerTruck(ctx context.Context, productID uuid.UUID) (*decimal.Decimal, error) {
	product, err := r.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return product.MaxPerTruck, nil
}
