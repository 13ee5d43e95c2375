// Package postgres implements the warehouse datasource adapter for
// PostgreSQL on top of pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursekit/warehouse-engine/pkg/adapters/datasource"
	enginesql "github.com/coursekit/warehouse-engine/pkg/sql"
)

// Executor provides read-only PostgreSQL query execution.
type Executor struct {
	pool   *pgxpool.Pool
	prefix string
}

var _ datasource.Executor = (*Executor)(nil)

// New creates a PostgreSQL executor with its own connection pool.
func New(ctx context.Context, cfg *datasource.Config) (datasource.Executor, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode(cfg.SSLMode))

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres warehouse: %w", err)
	}

	return &Executor{pool: pool, prefix: cfg.TablePrefix}, nil
}

func sslMode(mode string) string {
	if mode == "" {
		return "disable"
	}
	return mode
}

// Query executes the SQL in a read-only transaction and returns a
// streaming cursor. The cursor holds the transaction open until Close.
func (e *Executor) Query(ctx context.Context, sqlQuery string, params map[string]any, limit int) (datasource.Cursor, error) {
	queryToRun := enginesql.RewriteTablePrefix(sqlQuery, e.prefix)
	if limit > 0 {
		// Fetch one row beyond the cap so the consumer can detect truncation.
		queryToRun = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", queryToRun, limit+1)
	}

	bound, args, err := enginesql.BindNamed(queryToRun, enginesql.CoerceParams(params), enginesql.Dollar)
	if err != nil {
		return nil, err
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire warehouse connection: %w", err)
	}

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}

	rows, err := tx.Query(ctx, bound, args...)
	if err != nil {
		_ = tx.Rollback(ctx)
		conn.Release()
		return nil, fmt.Errorf("execute warehouse query: %w", err)
	}

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	return &cursor{rows: rows, tx: tx, conn: conn, columns: columns}, nil
}

// TestConnection verifies the warehouse is reachable.
func (e *Executor) TestConnection(ctx context.Context) error {
	if err := e.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres warehouse: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (e *Executor) Close() error {
	e.pool.Close()
	return nil
}

// cursor streams rows from an open read-only transaction.
type cursor struct {
	rows    pgx.Rows
	tx      pgx.Tx
	conn    *pgxpool.Conn
	columns []string
	closed  bool
}

func (c *cursor) Columns() []string { return c.columns }

func (c *cursor) Next() bool { return c.rows.Next() }

func (c *cursor) Values() ([]any, error) {
	values, err := c.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("read row values: %w", err)
	}
	return values, nil
}

func (c *cursor) Err() error { return c.rows.Err() }

func (c *cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.rows.Close()
	_ = c.tx.Rollback(context.Background())
	c.conn.Release()
}
