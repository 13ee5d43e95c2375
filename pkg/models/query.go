package models

import (
	"time"

	"github.com/google/uuid"
)

// Query represents a stored, administrator-defined SQL query.
//
// QuerySQL may contain the runtime tokens %%USERID%%, %%COURSEID%% and
// %%CMID%% which are substituted immediately before execution, and the
// literal "prefix_" marker which is rewritten to the warehouse table
// prefix. String literals inside the SQL must not contain raw ':', ';'
// or '?' characters; authors embed %%C%%, %%S%% and %%Q%% instead and
// the CSV writer restores them in the output.
type Query struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	QuerySQL    string     `json:"query_sql"`
	Enabled     bool       `json:"enabled"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
}
