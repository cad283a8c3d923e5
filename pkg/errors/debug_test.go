package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDump_Nil(t *testing.T) {
	d := Dump(nil)
	if d.TopMessage != "" || d.Code != "" || len(d.Chain) != 0 {
		t.Fatalf("expected empty dump for nil error, got %+v", d)
	}
	if len(d.Fields()) != 0 {
		t.Fatalf("expected no fields for nil error, got %v", d.Fields())
	}
}

func TestDump_WrappedChain(t *testing.T) {
	base := fmt.Errorf("connection reset")
	err := Wrap(CodeDependency, fmt.Errorf("query failed: %w", base), "persisting stock position")

	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected code %s, got %s", CodeDependency, d.Code)
	}
	if d.TopMessage != err.Error() {
		t.Fatalf("expected top message %q, got %q", err.Error(), d.TopMessage)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(d.Chain), d.Chain)
	}
	if d.PGCode != "" {
		t.Fatalf("expected no pg details without a driver error, got %q", d.PGCode)
	}
}

func TestDump_PostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		ConstraintName: "uq_stock_movements_reference",
		TableName:      "stock_movements",
		Detail:         "Key already exists.",
	}
	err := Wrap(CodeConcurrencyConflict, pgErr, "movement recorded concurrently")

	d := Dump(err)
	if d.PGCode != "23505" {
		t.Fatalf("expected pg code 23505, got %q", d.PGCode)
	}
	if d.PGConstraint != "uq_stock_movements_reference" {
		t.Fatalf("expected constraint name surfaced, got %q", d.PGConstraint)
	}
	if d.PGTable != "stock_movements" {
		t.Fatalf("expected table name surfaced, got %q", d.PGTable)
	}

	fields := d.Fields()
	if fields["pg_constraint"] != "uq_stock_movements_reference" {
		t.Fatalf("expected pg_constraint field, got %v", fields)
	}
	if fields["error_code"] != string(CodeConcurrencyConflict) {
		t.Fatalf("expected error_code field, got %v", fields)
	}
	if fields["pg_detail"] != "Key already exists." {
		t.Fatalf("expected pg_detail field, got %v", fields)
	}
}
