// Package sqlledger implements the run ledger over database/sql. The sqlite
// and postgres drivers differ only in their Dialect.
package sqlledger

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cornucopia/pkg/domain"
)

// timeLayout sorts lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Schema DDL per backend.
var (
	//go:embed schema/sqlite.sql
	sqliteSchema string
	//go:embed schema/postgres.sql
	postgresSchema string
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name        string
	Schema      string
	Placeholder func(n int) string
}

// Supported dialects.
var (
	SQLite   = Dialect{Name: "sqlite", Schema: sqliteSchema, Placeholder: func(int) string { return "?" }}
	Postgres = Dialect{Name: "postgres", Schema: postgresSchema, Placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
)

// Statements splits the dialect schema into individual statements.
func (d Dialect) Statements() []string {
	var out []string
	for _, stmt := range strings.Split(d.Schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Ledger stores each record as a JSON payload with indexed columns for the
// filterable fields.
type Ledger struct {
	db      *sql.DB
	dialect Dialect
}

var _ domain.RunLedger = (*Ledger)(nil)

// New ensures the schema exists and returns a ledger over db.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Ledger, error) {
	for _, stmt := range d.Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply %s schema: %w", d.Name, err)
		}
	}
	return &Ledger{db: db, dialect: d}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (l *Ledger) DB() *sql.DB { return l.db }

// Append inserts a record; an existing id yields domain.ErrDuplicateRun.
func (l *Ledger) Append(ctx context.Context, r domain.RunRecord) error {
	if r.ID == "" {
		return fmt.Errorf("append run: empty id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", r.ID, err)
	}
	p := l.dialect.Placeholder
	query := fmt.Sprintf(`INSERT INTO runs (id, created_at, experiment_type, status, payload) VALUES (%s, %s, %s, %s, %s) ON CONFLICT (id) DO NOTHING`,
		p(1), p(2), p(3), p(4), p(5))
	res, err := l.db.ExecContext(ctx, query, r.ID, r.CreatedAt.UTC().Format(timeLayout), string(r.Type), string(r.Status), string(payload))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRun, r.ID)
	}
	return nil
}

// Get loads one record.
func (l *Ledger) Get(ctx context.Context, id string) (domain.RunRecord, error) {
	query := fmt.Sprintf(`SELECT payload FROM runs WHERE id = %s`, l.dialect.Placeholder(1))
	var payload []byte
	if err := l.db.QueryRowContext(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
		}
		return domain.RunRecord{}, fmt.Errorf("select run %s: %w", id, err)
	}
	return decode(payload)
}

// List returns matching records oldest first.
func (l *Ledger) List(ctx context.Context, f domain.RunFilter) ([]domain.RunRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, "experiment_type = "+l.dialect.Placeholder(len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, "status = "+l.dialect.Placeholder(len(args)))
	}
	query := "SELECT payload FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT " + l.dialect.Placeholder(len(args))
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.RunRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (l *Ledger) Close() error { return l.db.Close() }

func decode(payload []byte) (domain.RunRecord, error) {
	var r domain.RunRecord
	if err := json.Unmarshal(payload, &r); err != nil {
		return domain.RunRecord{}, fmt.Errorf("decode run: %w", err)
	}
	return r, nil
}
