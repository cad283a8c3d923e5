// Package reporting derives read-only views from the movement log: current
// levels, historical snapshots, and reconciliation against positions. It
// never writes.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/franchiseops/stockcore/internal/ledger"
	"github.com/franchiseops/stockcore/pkg/db/models"
	"github.com/franchiseops/stockcore/pkg/enums"
	pkgerrors "github.com/franchiseops/stockcore/pkg/errors"
	"github.com/franchiseops/stockcore/pkg/logger"
)

// Drift is a position whose stored on-hand disagrees with the sum of its
// movements. A healthy ledger reports none.
type Drift struct {
	Key         ledger.PositionKey
	OnHand      decimal.Decimal
	MovementSum decimal.Decimal
}

// Service exposes the audit read paths.
type Service interface {
	CurrentLevels(ctx context.Context, kind enums.LocationKind, locationID uuid.UUID) ([]models.StockPosition, error)
	SnapshotAt(ctx context.Context, key ledger.PositionKey, at time.Time) (decimal.Decimal, error)
	Reconcile(ctx context.Context, kind enums.LocationKind, locationID uuid.UUID) ([]Drift, error)
}

type service struct {
	repo ledger.Repository
	logg *logger.Logger
}

// NewService wires a reporting projection over the ledger's read surface.
func NewService(repo ledger.Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) CurrentLevels(ctx context.Context, kind enums.LocationKind, locationID uuid.UUID) ([]models.StockPosition, error) {
	if kind != "" && !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid location kind %q", kind))
	}
	return s.repo.ListPositions(ctx, kind, locationID)
}

// SnapshotAt replays the movement log up to the given instant and returns
// the on-hand quantity the pair held then.
func (s *service) SnapshotAt(ctx context.Context, key ledger.PositionKey, at time.Time) (decimal.Decimal, error) {
	if !key.LocationKind.IsValid() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid location kind %q", key.LocationKind))
	}
	if key.LocationID == uuid.Nil || key.ProductID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "location and product ids are required")
	}
	if at.IsZero() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "snapshot time is required")
	}

	sum, err := s.repo.SumMovements(ctx, key, &at)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing movements")
	}
	return sum, nil
}

// Reconcile compares every matching position's on-hand against the sum of
// its movements. Pairs that cannot be summed are reported as an aggregated
// error; the scan continues past them.
func (s *service) Reconcile(ctx context.Context, kind enums.LocationKind, locationID uuid.UUID) ([]Drift, error) {
	positions, err := s.CurrentLevels(ctx, kind, locationID)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	var errs error
	for _, position := range positions {
		key := ledger.PositionKey{
			LocationKind: position.LocationKind,
			LocationID:   position.LocationID,
			ProductID:    position.ProductID,
		}
		sum, sumErr := s.repo.SumMovements(ctx, key, nil)
		if sumErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("summing %s/%s/%s: %w",
				key.LocationKind, key.LocationID, key.ProductID, sumErr))
			continue
		}
		if !sum.Equal(position.OnHand) {
			drifts = append(drifts, Drift{Key: key, OnHand: position.OnHand, MovementSum: sum})
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("position drift: on-hand %s vs movement sum %s for product %s",
					position.OnHand, sum, key.ProductID))
			}
		}
	}
	return drifts, errs
}
