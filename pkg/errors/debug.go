package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorDump flattens an error chain for diagnostics, pulling out the Postgres
// driver details when one is in the chain.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	}

	return d
}

// Fields renders the dump as logger fields, omitting what the error did not
// carry.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	if d.PGCode != "" {
		fields["pg_code"] = d.PGCode
	}
	if d.PGConstraint != "" {
		fields["pg_constraint"] = d.PGConstraint
	}
	if d.PGTable != "" {
		fields["pg_table"] = d.PGTable
	}
	if d.PGColumn != "" {
		fields["pg_column"] = d.PGColumn
	}
	if d.PGDetail != "" {
		fields["pg_detail"] = d.PGDetail
	}
	if d.PGMessage != "" {
		fields["pg_message"] = d.PGMessage
	}
	return fields
}
