package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/coursekit/warehouse-engine/pkg/models"
	enginesql "github.com/coursekit/warehouse-engine/pkg/sql"
)

// ValidationError reports a malformed query or backend definition. It is
// surfaced to the administrator at edit time and never reaches an export
// run.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// validateQueryDefinition checks a query before it is stored. The stored
// SQL is normalized in place.
func validateQueryDefinition(query *models.Query) error {
	if strings.TrimSpace(query.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(query.QuerySQL) == "" {
		return &ValidationError{Field: "query_sql", Message: "SQL text is required"}
	}

	result := enginesql.ValidateAndNormalize(query.QuerySQL)
	if result.Error != nil {
		return &ValidationError{Field: "query_sql", Message: result.Error.Error()}
	}
	query.QuerySQL = result.NormalizedSQL

	return nil
}

// validateBackendDefinition checks a backend before it is stored.
func validateBackendDefinition(backend *models.Backend) error {
	if strings.TrimSpace(backend.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}

	u, err := url.Parse(strings.TrimSpace(backend.URL))
	if err != nil {
		return &ValidationError{Field: "url", Message: "not a valid URL"}
	}
	if u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "delivery requires an https URL"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "url", Message: "URL has no host"}
	}

	return nil
}
