// Package datasource defines the warehouse datasource abstraction:
// read-only, streaming execution of prepared SQL against a relational
// database, with driver adapters registered per database type.
package datasource

import "context"

// Cursor is a forward-only, single-pass iterator over a result set.
// It must be closed exactly once; rows are fetched lazily so result
// sets larger than memory can be serialized incrementally.
type Cursor interface {
	// Columns returns the result column names in select order.
	Columns() []string

	// Next advances to the next row, returning false at the end of the
	// result set or on error (check Err).
	Next() bool

	// Values returns the current row's values in column order.
	Values() ([]any, error)

	// Err returns the error, if any, that stopped iteration.
	Err() error

	// Close releases the cursor and its underlying connection state.
	Close()
}

// Executor runs stored warehouse queries. Implementations must execute
// read-only and bound: named :param placeholders are rewritten to the
// driver's native positional syntax and values are passed to the driver,
// never spliced into the text.
type Executor interface {
	// Query executes the SQL with the given named parameters, returning
	// a streaming cursor. A positive limit caps the underlying fetch at
	// limit+1 rows so callers can detect truncation.
	Query(ctx context.Context, sqlQuery string, params map[string]any, limit int) (Cursor, error)

	// TestConnection verifies the warehouse is reachable.
	TestConnection(ctx context.Context) error

	// Close releases the executor's connection pool.
	Close() error
}

// Config carries connection options for a warehouse adapter.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// TablePrefix replaces the literal "prefix_" marker in query text.
	TablePrefix string
}
