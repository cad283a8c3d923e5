package ledger

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/franchiseops/stockcore/pkg/db"
	"github.com/franchiseops/stockcore/pkg/db/models"
	"github.com/franchiseops/stockcore/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.StockPosition{}); err != nil {
		t.Fatalf("migrate positions: %v", err)
	}

	// stock_movements carries Postgres defaults, so sqlite gets the table
	// spelled out directly, dedup index included.
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
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Output: io.Discard})
	svc, err := NewService(db.NewWithConn(conn), NewRepository(conn), nil, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}
