package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the flattened form of an error chain written to request logs.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	PG         PGFields `json:"pg,omitempty"`
}

// PGFields carries the Postgres diagnostics of the first driver error in the chain.
type PGFields struct {
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Fields returns the non-empty diagnostics keyed for structured logging.
func (p PGFields) Fields() map[string]any {
	out := map[string]any{}
	for key, value := range map[string]string{
		"pg_code":       p.Code,
		"pg_constraint": p.Constraint,
		"pg_table":      p.Table,
		"pg_column":     p.Column,
		"pg_detail":     p.Detail,
		"pg_message":    p.Message,
	} {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), PG: pgFields(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

// pgx backs gorm; lib/pq backs the goose migrator.
func pgFields(err error) PGFields {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return PGFields{pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message}
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return PGFields{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail, pqErr.Message}
	}
	return PGFields{}
}
