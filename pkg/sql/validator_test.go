package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsBadWord(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected string
	}{
		{"clean select", "SELECT id, name FROM prefix_user", ""},
		{"drop uppercase", "DROP TABLE users", "DROP"},
		{"drop lowercase", "drop table users", "drop"},
		{"drop mixed case", "DrOp TABLE users", "DrOp"},
		{"insert", "INSERT other things", "INSERT"},
		{"into as whole word", "SELECT 1 INTO x", "INTO"},
		{"substring not matched", "SELECT dropped, created FROM prefix_log", ""},
		{"update inside identifier", "SELECT lastupdated FROM prefix_quiz", ""},
		{"truncate", "TRUNCATE prefix_log", "TRUNCATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsBadWord(tt.sql))
		})
	}
}

func TestValidateAndNormalize(t *testing.T) {
	t.Run("strips trailing semicolon", func(t *testing.T) {
		result := ValidateAndNormalize("SELECT id FROM prefix_user;  ")
		require.NoError(t, result.Error)
		assert.Equal(t, "SELECT id FROM prefix_user", result.NormalizedSQL)
	})

	t.Run("rejects multiple statements", func(t *testing.T) {
		result := ValidateAndNormalize("SELECT 1; SELECT 2")
		assert.ErrorIs(t, result.Error, ErrMultipleStatements)
	})

	t.Run("semicolon inside string literal allowed via token only", func(t *testing.T) {
		// A raw semicolon in a literal is caught by the punctuation check.
		result := ValidateAndNormalize("SELECT 'a;b' FROM prefix_user")
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "%%S%%")
	})

	t.Run("rejects colon in string literal", func(t *testing.T) {
		result := ValidateAndNormalize("SELECT 'http://x' FROM prefix_user")
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "%%C%%")
	})

	t.Run("rejects question mark in string literal", func(t *testing.T) {
		result := ValidateAndNormalize("SELECT 'why%%Q%% because' FROM t WHERE x = 'a?b'")
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "%%Q%%")
	})

	t.Run("tokens in literals pass", func(t *testing.T) {
		result := ValidateAndNormalize("SELECT '%%WWWROOT%%/view.php%%Q%%id=1' FROM prefix_quiz")
		require.NoError(t, result.Error)
	})

	t.Run("rejects blocklisted keyword", func(t *testing.T) {
		result := ValidateAndNormalize("SELECT 1 FROM x; DROP TABLE y")
		// Multiple statements detected first.
		assert.ErrorIs(t, result.Error, ErrMultipleStatements)

		result = ValidateAndNormalize("DELETE FROM prefix_user")
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "DELETE")
	})

	t.Run("empty input", func(t *testing.T) {
		result := ValidateAndNormalize("   ")
		require.NoError(t, result.Error)
		assert.Equal(t, "", result.NormalizedSQL)
	})

	t.Run("named placeholders outside literals pass", func(t *testing.T) {
		result := ValidateAndNormalize("SELECT id FROM prefix_user WHERE id = :userid")
		require.NoError(t, result.Error)
	})
}
