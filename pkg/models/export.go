package models

import (
	"time"

	"github.com/google/uuid"
)

// ExportStatus describes the outcome of an export run. Delivery failure
// after the file was generated is a status, not an error hierarchy: the
// file exists and can be re-delivered without re-running the query.
type ExportStatus string

const (
	// StatusDelivered means the file was generated, persisted and accepted
	// by the backend.
	StatusDelivered ExportStatus = "delivered"

	// StatusGeneratedNotDelivered means the file was generated and
	// persisted but the upload to the backend failed.
	StatusGeneratedNotDelivered ExportStatus = "generated_not_delivered"
)

// ExportRun is the input context for one end-to-end export.
type ExportRun struct {
	QueryID        uuid.UUID
	BackendID      uuid.UUID
	UserID         int64
	CourseID       int64
	CourseModuleID int64
	QuizID         int64

	// TimeStart and TimeEnd bound the run's reporting window as unix
	// timestamps. Zero values leave the window tokens untouched.
	TimeStart int64
	TimeEnd   int64

	// Params holds values for any :name placeholders in the stored SQL.
	Params map[string]any

	// StartedAt is captured once at run start; both timestamp forms in
	// the output filename derive from it.
	StartedAt time.Time
}

// ExportResult reports a completed run.
type ExportResult struct {
	Status        ExportStatus  `json:"status"`
	ItemID        int64         `json:"item_id"`
	Filename      string        `json:"filename"`
	RowCount      int           `json:"row_count"`
	LimitExceeded bool          `json:"limit_exceeded"`
	Elapsed       time.Duration `json:"-"`
	ElapsedMS     int64         `json:"elapsed_ms"`
}

// ExportFile is a persisted output blob record (content excluded).
type ExportFile struct {
	ID        uuid.UUID  `json:"id"`
	Component string     `json:"component"`
	ContextID int64      `json:"context_id"`
	FileArea  string     `json:"file_area"`
	ItemID    int64      `json:"item_id"`
	FilePath  string     `json:"file_path"`
	Filename  string     `json:"filename"`
	QueryID   *uuid.UUID `json:"query_id,omitempty"`
	Size      int64      `json:"size"`
	CreatedAt time.Time  `json:"created_at"`
}
