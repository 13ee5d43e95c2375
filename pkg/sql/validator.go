package sql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// badWords are mutating keywords a warehouse query must never contain.
// The check is defense in depth applied to the query text before
// execution, not a substitute for a read-only credential.
var badWords = []string{
	"ALTER", "CREATE", "DELETE", "DROP", "GRANT", "INSERT", "INTO", "TRUNCATE", "UPDATE",
}

var badWordsRegex = regexp.MustCompile(`(?i)\b(` + strings.Join(badWords, "|") + `)\b`)

// ContainsBadWord returns the first blocklisted keyword found in the SQL
// (case-insensitive whole-word match), or "" if the text is clean.
func ContainsBadWord(sqlQuery string) string {
	return badWordsRegex.FindString(sqlQuery)
}

// ValidationResult contains the normalized SQL and any validation error.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize checks stored SQL before it is accepted or run.
//
// The validation order is:
//  1. Strip trailing semicolon and whitespace (normalize)
//  2. Check for multiple statements (any remaining semicolons outside string literals)
//  3. Check for blocklisted mutating keywords
//  4. Check string literals for raw ':', ';' and '?' (authors must use
//     the %%C%%, %%S%% and %%Q%% output tokens instead)
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)

	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)

	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	if word := ContainsBadWord(normalized); word != "" {
		return ValidationResult{Error: fmt.Errorf("forbidden keyword %q in query", strings.ToUpper(word))}
	}

	if char := literalPunctuationInStrings(normalized); char != 0 {
		return ValidationResult{Error: fmt.Errorf(
			"string literal contains %q; use the %s token instead", char, tokenForPunctuation(char))}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

func tokenForPunctuation(char rune) string {
	switch char {
	case '?':
		return TokenQuestion
	case ':':
		return TokenColon
	case ';':
		return TokenSemicolon
	}
	return ""
}

// literalPunctuationInStrings returns the first ':', ';' or '?' found
// inside a single-quoted SQL string literal, or 0 when none occurs.
// These characters conflict with named-parameter syntax, so the
// authoring layer rejects them.
func literalPunctuationInStrings(sqlQuery string) rune {
	inString := false
	prevChar := rune(0)

	for _, char := range sqlQuery {
		if inString {
			switch char {
			case ':', ';', '?':
				return char
			case '\'':
				if prevChar != '\\' {
					inString = false
				}
			}
		} else if char == '\'' {
			inString = true
		}
		prevChar = char
	}

	return 0
}

// hasSemicolonOutsideStrings returns true if the SQL contains any
// semicolon outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('').
			// For a doubled quote ('') this exits and immediately re-enters on
			// the next quote, which correctly keeps us in the string.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}
