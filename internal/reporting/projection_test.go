package reporting

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/franchiseops/stockcore/internal/ledger"
	"github.com/franchiseops/stockcore/pkg/db"
	"github.com/franchiseops/stockcore/pkg/db/models"
	"github.com/franchiseops/stockcore/pkg/enums"
	pkgerrors "github.com/franchiseops/stockcore/pkg/errors"
	"github.com/franchiseops/stockcore/pkg/logger"
)

type projectionFixture struct {
	svc    Service
	ledger ledger.Service
	conn   *gorm.DB
}

func newFixture(t *testing.T) *projectionFixture {
	t.Helper()

	dsn := "file:reporting_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.StockPosition{}); err != nil {
		t.Fatalf("migrate positions: %v", err)
	}
	stmts := []string{
		`CREATE TABLE stock_movements (
			id TEXT PRIMARY KEY,
			location_kind TEXT NOT NULL,
			location_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			qty NUMERIC NOT NULL,
			type TEXT NOT NULL,
			reference_type TEXT NOT NULL,
			reference_id TEXT NOT NULL,
			created_at DATETIME
		)`,
		`CREATE UNIQUE INDEX uq_stock_movements_reference
			ON stock_movements (reference_type, reference_id, location_kind, location_id, product_id, type)`,
	}
	for _, stmt := range stmts {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create movements schema: %v", err)
		}
	}

	repo := ledger.NewRepository(conn)
	logg := logger.New(logger.Options{ServiceName: "reporting-test", Output: io.Discard})

	ledgerSvc, err := ledger.NewService(db.NewWithConn(conn), repo, nil, logg)
	if err != nil {
		t.Fatalf("new ledger service: %v", err)
	}
	svc, err := NewService(repo, logg)
	if err != nil {
		t.Fatalf("new reporting service: %v", err)
	}

	return &projectionFixture{svc: svc, ledger: ledgerSvc, conn: conn}
}

func (f *projectionFixture) apply(t *testing.T, key ledger.PositionKey, qty int64, movementType enums.MovementType, refType enums.ReferenceType) {
	t.Helper()
	_, err := f.ledger.ApplyMovement(context.Background(), ledger.ApplyMovementInput{
		Key:           key,
		Qty:           decimal.NewFromInt(qty),
		Type:          movementType,
		ReferenceType: refType,
		ReferenceID:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("apply movement: %v", err)
	}
}

func TestSnapshotAt(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	key := ledger.PositionKey{
		LocationKind: enums.LocationKindWarehouse,
		LocationID:   uuid.New(),
		ProductID:    uuid.New(),
	}

	f.apply(t, key, 100, enums.MovementTypePurchaseIn, enums.ReferenceTypePurchaseOrder)
	cutoff := time.Now().UTC().Add(time.Minute)

	// a later movement must not count toward the snapshot
	later := &models.StockMovement{
		ID:            uuid.New(),
		LocationKind:  key.LocationKind,
		LocationID:    key.LocationID,
		ProductID:     key.ProductID,
		Qty:           decimal.NewFromInt(-30),
		Type:          enums.MovementTypeTransferOut,
		ReferenceType: enums.ReferenceTypeReplenishment,
		ReferenceID:   uuid.New(),
		CreatedAt:     cutoff.Add(time.Hour),
	}
	if err := f.conn.Create(later).Error; err != nil {
		t.Fatalf("seed later movement: %v", err)
	}

	snapshot, err := f.svc.SnapshotAt(ctx, key, cutoff)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snapshot.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected snapshot 100 before the outbound, got %s", snapshot)
	}

	full, err := f.svc.SnapshotAt(ctx, key, cutoff.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("snapshot after outbound: %v", err)
	}
	if !full.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected snapshot 70 after the outbound, got %s", full)
	}
}

func TestSnapshotAt_NoMovementsIsZero(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	snapshot, err := f.svc.SnapshotAt(context.Background(), ledger.PositionKey{
		LocationKind: enums.LocationKindTruck,
		LocationID:   uuid.New(),
		ProductID:    uuid.New(),
	}, time.Now())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snapshot.IsZero() {
		t.Fatalf("expected zero snapshot for unseen pair, got %s", snapshot)
	}
}

func TestSnapshotAt_Validates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SnapshotAt(ctx, ledger.PositionKey{
		LocationKind: enums.LocationKind("depot"),
		LocationID:   uuid.New(),
		ProductID:    uuid.New(),
	}, time.Now())
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad kind, got %v", err)
	}

	_, err = f.svc.SnapshotAt(ctx, ledger.PositionKey{
		LocationKind: enums.LocationKindWarehouse,
		LocationID:   uuid.New(),
		ProductID:    uuid.New(),
	}, time.Time{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero time, got %v", err)
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	locationID := uuid.New()
	healthy := ledger.PositionKey{
		LocationKind: enums.LocationKindWarehouse,
		LocationID:   locationID,
		ProductID:    uuid.New(),
	}
	drifted := ledger.PositionKey{
		LocationKind: enums.LocationKindWarehouse,
		LocationID:   locationID,
		ProductID:    uuid.New(),
	}

	f.apply(t, healthy, 60, enums.MovementTypePurchaseIn, enums.ReferenceTypePurchaseOrder)
	f.apply(t, drifted, 40, enums.MovementTypePurchaseIn, enums.ReferenceTypePurchaseOrder)

	drifts, err := f.svc.Reconcile(ctx, enums.LocationKindWarehouse, locationID)
	if err != nil {
		t.Fatalf("reconcile healthy ledger: %v", err)
	}
	if len(drifts) != 0 {
		t.Fatalf("expected no drift on a healthy ledger, got %+v", drifts)
	}

	// corrupt one position behind the ledger's back
	err = f.conn.Model(&models.StockPosition{}).
		Where("location_kind = ? AND location_id = ? AND product_id = ?",
			drifted.LocationKind, drifted.LocationID, drifted.ProductID).
		Update("on_hand", decimal.NewFromInt(55)).Error
	if err != nil {
		t.Fatalf("corrupt position: %v", err)
	}

	drifts, err = f.svc.Reconcile(ctx, enums.LocationKindWarehouse, locationID)
	if err != nil {
		t.Fatalf("reconcile drifted ledger: %v", err)
	}
	if len(drifts) != 1 {
		t.Fatalf("expected exactly one drift, got %d", len(drifts))
	}
	if drifts[0].Key != drifted {
		t.Fatalf("unexpected drifted key %+v", drifts[0].Key)
	}
	if !drifts[0].OnHand.Equal(decimal.NewFromInt(55)) || !drifts[0].MovementSum.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected drift amounts %+v", drifts[0])
	}
}

func TestCurrentLevels_RejectsUnknownKind(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.CurrentLevels(context.Background(), enums.LocationKind("depot"), uuid.Nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
