// Package mssql implements the warehouse datasource adapter for
// SQL Server on top of go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver

	"github.com/coursekit/warehouse-engine/pkg/adapters/datasource"
	enginesql "github.com/coursekit/warehouse-engine/pkg/sql"
)

// Executor provides read-only SQL Server query execution.
type Executor struct {
	db     *sql.DB
	prefix string
}

var _ datasource.Executor = (*Executor)(nil)

// New creates a SQL Server executor.
func New(ctx context.Context, cfg *datasource.Config) (datasource.Executor, error) {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	q := url.Values{}
	q.Set("database", cfg.Database)
	u.RawQuery = q.Encode()

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("open sqlserver warehouse: %w", err)
	}

	return &Executor{db: db, prefix: cfg.TablePrefix}, nil
}

// Query executes the SQL and returns a streaming cursor.
func (e *Executor) Query(ctx context.Context, sqlQuery string, params map[string]any, limit int) (datasource.Cursor, error) {
	queryToRun := enginesql.RewriteTablePrefix(sqlQuery, e.prefix)
	if limit > 0 {
		queryToRun = applyRowLimit(queryToRun, limit)
	}

	bound, args, err := enginesql.BindNamed(queryToRun, enginesql.CoerceParams(params), enginesql.AtP)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, fmt.Errorf("execute warehouse query: %w", err)
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("get columns: %w", err)
	}

	return &cursor{rows: rows, columns: columns}, nil
}

// applyRowLimit caps the result set at limit+1 rows so the consumer can
// detect truncation. A statement whose top level ends in ORDER BY cannot
// be wrapped as a derived table (SQL Server rejects ORDER BY there
// without TOP or OFFSET), so it gets an OFFSET/FETCH clause instead.
func applyRowLimit(sqlQuery string, limit int) string {
	orderBy, offset := outerClauses(sqlQuery)
	if orderBy && !offset {
		return fmt.Sprintf("%s OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", strings.TrimSpace(sqlQuery), limit+1)
	}
	return fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", limit+1, sqlQuery)
}

// outerClauses reports whether ORDER BY and OFFSET appear at the top
// level of the statement, outside parentheses and string literals.
func outerClauses(sqlQuery string) (orderBy, offset bool) {
	lower := strings.ToLower(sqlQuery)
	depth := 0

	for i := 0; i < len(lower); i++ {
		switch c := lower[i]; c {
		case '\'':
			// Skip the literal, honoring '' escapes.
			for i++; i < len(lower); i++ {
				if lower[i] != '\'' {
					continue
				}
				if i+1 < len(lower) && lower[i+1] == '\'' {
					i++
					continue
				}
				break
			}
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case 'o':
			if depth != 0 {
				continue
			}
			if wordAt(lower, i, "order") {
				j := i + len("order")
				for j < len(lower) && isSQLSpace(lower[j]) {
					j++
				}
				if wordAt(lower, j, "by") {
					orderBy = true
				}
			}
			if wordAt(lower, i, "offset") {
				offset = true
			}
		}
	}

	return orderBy, offset
}

func wordAt(s string, i int, word string) bool {
	if i+len(word) > len(s) || s[i:i+len(word)] != word {
		return false
	}
	if i > 0 && isWordByte(s[i-1]) {
		return false
	}
	if end := i + len(word); end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}

func isSQLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// TestConnection verifies the warehouse is reachable.
func (e *Executor) TestConnection(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlserver warehouse: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (e *Executor) Close() error {
	return e.db.Close()
}

// cursor streams rows from a database/sql result set.
type cursor struct {
	rows    *sql.Rows
	columns []string
}

func (c *cursor) Columns() []string { return c.columns }

func (c *cursor) Next() bool { return c.rows.Next() }

func (c *cursor) Values() ([]any, error) {
	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("read row values: %w", err)
	}

	// The driver returns []byte for textual columns; normalize to string
	// so downstream formatting sees one representation.
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}

	return values, nil
}

func (c *cursor) Err() error { return c.rows.Err() }

func (c *cursor) Close() { _ = c.rows.Close() }
