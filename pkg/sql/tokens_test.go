package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteTokens(t *testing.T) {
	rc := RunContext{UserID: 42, CourseID: 7, CourseModuleID: 1301}

	tests := []struct {
		name     string
		sql      string
		expected string
	}{
		{
			name:     "single user token",
			sql:      "SELECT * FROM prefix_user WHERE id = %%USERID%%",
			expected: "SELECT * FROM prefix_user WHERE id = 42",
		},
		{
			name:     "all tokens",
			sql:      "SELECT %%USERID%%, %%COURSEID%%, %%CMID%%",
			expected: "SELECT 42, 7, 1301",
		},
		{
			name:     "repeated token replaced everywhere",
			sql:      "WHERE a = %%COURSEID%% OR b = %%COURSEID%%",
			expected: "WHERE a = 7 OR b = 7",
		},
		{
			name:     "no tokens unchanged",
			sql:      "SELECT id FROM prefix_quiz",
			expected: "SELECT id FROM prefix_quiz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SubstituteTokens(tt.sql, rc))
		})
	}
}

func TestSubstituteTokens_Idempotent(t *testing.T) {
	rc := RunContext{UserID: 5, CourseID: 6, CourseModuleID: 7}
	sql := "SELECT %%USERID%% FROM prefix_user WHERE course = %%COURSEID%%"

	once := SubstituteTokens(sql, rc)
	twice := SubstituteTokens(once, rc)

	assert.Equal(t, once, twice)
}

func TestSubstituteTimeWindow(t *testing.T) {
	sql := "WHERE timecreated BETWEEN %%STARTTIME%% AND %%ENDTIME%%"
	assert.Equal(t, "WHERE timecreated BETWEEN 100 AND 200", SubstituteTimeWindow(sql, 100, 200))
}

func TestSubstituteOutputTokens(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"question mark", "is this right%%Q%%", "is this right?"},
		{"colon", "key%%C%% value", "key: value"},
		{"semicolon", "a%%S%%b", "a;b"},
		{"wwwroot", "%%WWWROOT%%/mod/quiz/view.php", "https://lms.example.com/mod/quiz/view.php"},
		{"all at once", "%%WWWROOT%%/q%%Q%%x=1%%S%%y%%C%%2", "https://lms.example.com/q?x=1;y:2"},
		{"plain value untouched", "hello world", "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SubstituteOutputTokens(tt.value, "https://lms.example.com"))
		})
	}
}
