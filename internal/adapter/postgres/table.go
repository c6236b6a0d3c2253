package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Strob0t/secretsdir/internal/adapter/kvfs"
)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Table is a kvfs.Source over a table with the columns
// (name TEXT, value TEXT, updated_at TIMESTAMPTZ). A missing table reports
// fs.ErrNotExist.
type Table struct {
	db    querier
	name  string
	ident string
}

// NewTable returns a Table reading from the table called name.
func NewTable(db querier, name string) *Table {
	return &Table{db: db, name: name, ident: pgx.Identifier{name}.Sanitize()}
}

// NewFS returns a secrets directory over the table called name.
func NewFS(ctx context.Context, db querier, name string) *kvfs.FS {
	return kvfs.New(ctx, "postgres table "+name, NewTable(db, name))
}

// Keys implements kvfs.Source.
func (t *Table) Keys(ctx context.Context) ([]string, error) {
	rows, err := t.db.Query(ctx, "SELECT name FROM "+t.ident)
	if err != nil {
		return nil, mapErr(err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapErr(err)
	}
	return names, nil
}

// Get implements kvfs.Source.
func (t *Table) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	var (
		value   string
		updated time.Time
	)
	err := t.db.QueryRow(ctx, "SELECT value, updated_at FROM "+t.ident+" WHERE name = $1", key).
		Scan(&value, &updated)
	if err != nil {
		return nil, time.Time{}, mapErr(err)
	}
	return []byte(value), updated, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	}
	return err
}
