package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/hpungsan/lexis/internal/analysis"
	"github.com/hpungsan/lexis/internal/errors"
)

// ErrAddressTaken is returned when an insert collides on analyses.address.
// Callers regenerate the address and retry; it is never shown to users.
var ErrAddressTaken = &errors.LexisError{
	Code:    errors.ErrConflict,
	Status:  409,
	Message: "address already in use",
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// exec builds and runs a write statement against the ctx querier.
func exec(ctx context.Context, db *sql.DB, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return querier(ctx, db).ExecContext(ctx, query, args...)
}

// queryRow builds and runs a single-row select against the ctx querier.
func queryRow(ctx context.Context, db *sql.DB, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return querier(ctx, db).QueryRowContext(ctx, query, args...), nil
}

// query builds and runs a multi-row select against the ctx querier.
func query(ctx context.Context, db *sql.DB, b sq.Sqlizer) (*sql.Rows, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	rows, err := querier(ctx, db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// rowsAffected returns the affected row count or an INTERNAL error.
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// count runs a SELECT COUNT(*) builder.
func count(ctx context.Context, db *sql.DB, b sq.SelectBuilder) (int, error) {
	row, err := queryRow(ctx, db, b)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: table.column" for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isUniqueOn reports whether err is a UNIQUE violation naming column (table.column).
func isUniqueOn(err error, column string) bool {
	return isUniqueConstraintError(err) && strings.Contains(err.Error(), column)
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// toNullJSON stores an opaque payload; empty payloads become NULL.
func toNullJSON(m json.RawMessage) sql.NullString {
	if len(m) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(m), Valid: true}
}

// fromNullJSON is the inverse of toNullJSON.
func fromNullJSON(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

// payloadColumns lists the four analyzer payload columns in storage order.
var payloadColumns = []string{"sentiment", "ngrams", "named_entities", "word_frequencies"}

// payloadValues returns the payload column values in payloadColumns order.
func payloadValues(p analysis.Payloads) []any {
	return []any{
		toNullJSON(p.Sentiment),
		toNullJSON(p.Ngrams),
		toNullJSON(p.NamedEntities),
		toNullJSON(p.WordFrequencies),
	}
}

// nullPayloads holds scan targets for the payload columns.
type nullPayloads struct {
	sentiment, ngrams, namedEntities, wordFrequencies sql.NullString
}

func (n *nullPayloads) targets() []any {
	return []any{&n.sentiment, &n.ngrams, &n.namedEntities, &n.wordFrequencies}
}

func (n *nullPayloads) payloads() analysis.Payloads {
	return analysis.Payloads{
		Sentiment:       fromNullJSON(n.sentiment),
		Ngrams:          fromNullJSON(n.ngrams),
		NamedEntities:   fromNullJSON(n.namedEntities),
		WordFrequencies: fromNullJSON(n.wordFrequencies),
	}
}
