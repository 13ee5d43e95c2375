// Package export implements the export pipeline: CSV serialization,
// output file naming and the typed stage errors an export run can fail
// with.
package export

import (
	"fmt"
	"time"
)

// RunInfo identifies an export run in error messages and logs.
type RunInfo struct {
	QueryName string
	UserID    int64
	StartedAt time.Time
}

func (r RunInfo) String() string {
	return fmt.Sprintf("query %q, user %d, started %s", r.QueryName, r.UserID, r.StartedAt.UTC().Format(time.RFC3339))
}

// QueryExecutionError means the warehouse rejected or failed the query.
// No blob has been written when this surfaces.
type QueryExecutionError struct {
	Run RunInfo
	Err error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed (%s): %v", e.Run, e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// SerializationError means writing the CSV failed mid-stream. The
// partial output is not exposed.
type SerializationError struct {
	Run RunInfo
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("csv serialization failed (%s): %v", e.Run, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// PersistenceError means the blob store rejected the write.
type PersistenceError struct {
	Run RunInfo
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting export file failed (%s): %v", e.Run, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError means the upload to the backend failed. The generated
// blob remains persisted and can be re-delivered without re-running the
// query.
type DeliveryError struct {
	Run      RunInfo
	Backend  string
	Filename string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of %s to backend %q failed (%s): %v", e.Filename, e.Backend, e.Run, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsRetryable reports that a failed upload is worth another attempt.
// The file is already persisted, so re-sending it is safe.
func (e *DeliveryError) IsRetryable() bool { return true }
