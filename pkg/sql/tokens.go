// Package sql provides validation, token substitution and parameter
// handling for stored warehouse queries.
package sql

import (
	"strconv"
	"strings"
)

// Runtime tokens replaced in SQL text before execution. These are fixed
// literal markers, not a template syntax: replacement is exact substring
// substitution with a decimal id.
const (
	TokenUserID   = "%%USERID%%"
	TokenCourseID = "%%COURSEID%%"
	TokenCMID     = "%%CMID%%"

	TokenStartTime = "%%STARTTIME%%"
	TokenEndTime   = "%%ENDTIME%%"
)

// Output tokens restored in cell values at CSV write time. Query authors
// cannot embed raw ':', ';' or '?' inside SQL string literals (they
// collide with named-parameter syntax), so they write these markers
// instead.
const (
	TokenWWWRoot   = "%%WWWROOT%%"
	TokenQuestion  = "%%Q%%"
	TokenColon     = "%%C%%"
	TokenSemicolon = "%%S%%"
)

// RunContext carries the ids substituted into a stored query.
type RunContext struct {
	UserID         int64
	CourseID       int64
	CourseModuleID int64
}

// SubstituteTokens replaces every occurrence of the runtime tokens with
// the decimal string of the corresponding id. The substituted values are
// validated integers, never free-form strings: they are spliced directly
// into SQL text, which is only safe under that constraint.
//
// The operation is idempotent once no tokens remain.
func SubstituteTokens(sqlText string, rc RunContext) string {
	sqlText = strings.ReplaceAll(sqlText, TokenUserID, strconv.FormatInt(rc.UserID, 10))
	sqlText = strings.ReplaceAll(sqlText, TokenCourseID, strconv.FormatInt(rc.CourseID, 10))
	sqlText = strings.ReplaceAll(sqlText, TokenCMID, strconv.FormatInt(rc.CourseModuleID, 10))
	return sqlText
}

// SubstituteTimeWindow replaces the %%STARTTIME%% and %%ENDTIME%% tokens
// with unix timestamps. Callers only invoke this when a time window
// applies to the run.
func SubstituteTimeWindow(sqlText string, start, end int64) string {
	sqlText = strings.ReplaceAll(sqlText, TokenStartTime, strconv.FormatInt(start, 10))
	sqlText = strings.ReplaceAll(sqlText, TokenEndTime, strconv.FormatInt(end, 10))
	return sqlText
}

// SubstituteOutputTokens restores escaped punctuation and the deployment
// base URL in a single output cell value.
func SubstituteOutputTokens(value, wwwroot string) string {
	value = strings.ReplaceAll(value, TokenWWWRoot, wwwroot)
	value = strings.ReplaceAll(value, TokenQuestion, "?")
	value = strings.ReplaceAll(value, TokenColon, ":")
	value = strings.ReplaceAll(value, TokenSemicolon, ";")
	return value
}
