package sql

import (
	"fmt"
	"regexp"
	"strconv"
)

// placeholderRegex matches :name placeholders in SQL. Names are matched
// case-sensitively in either case. The leading group excludes '::' so
// PostgreSQL casts are not mistaken for parameters.
var placeholderRegex = regexp.MustCompile(`(^|[^:\w]):([a-zA-Z][a-zA-Z0-9_]*)`)

// prefixRegex matches the literal table-name prefix marker. Queries are
// written against "prefix_tablename" and rewritten to the deployment's
// actual prefix at execution time.
var prefixRegex = regexp.MustCompile(`(?i)\bprefix_(\w)`)

// ExtractPlaceholders returns the named placeholders used in the SQL, in
// order of first appearance, without the leading colon.
func ExtractPlaceholders(sqlQuery string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(sqlQuery, -1)
	seen := make(map[string]bool)
	var names []string

	for _, match := range matches {
		name := match[2]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}

// RewriteTablePrefix replaces the "prefix_" marker with the configured
// table prefix. An empty prefix strips the marker.
func RewriteTablePrefix(sqlQuery, prefix string) string {
	return prefixRegex.ReplaceAllString(sqlQuery, prefix+"$1")
}

// CoerceParams converts each parameter whose value is an integer-looking
// string into a native int64, so bound values match typed columns. Other
// values pass through unchanged. The input map is not modified.
func CoerceParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	coerced := make(map[string]any, len(params))
	for name, value := range params {
		coerced[name] = value
		if s, ok := value.(string); ok {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
				coerced[name] = n
			}
		}
	}
	return coerced
}

// PlaceholderStyle selects the positional placeholder syntax of the
// target driver.
type PlaceholderStyle int

const (
	// Dollar produces $1, $2, ... (pgx).
	Dollar PlaceholderStyle = iota
	// AtP produces @p1, @p2, ... (go-mssqldb).
	AtP
)

func (s PlaceholderStyle) placeholder(n int) string {
	if s == AtP {
		return fmt.Sprintf("@p%d", n)
	}
	return fmt.Sprintf("$%d", n)
}

// BindNamed rewrites :name placeholders to the driver's positional
// syntax and returns the ordered argument values. A placeholder used
// more than once is bound to a single position. Supplying a parameter
// that does not appear in the SQL, or omitting one that does, is an
// error.
func BindNamed(sqlQuery string, params map[string]any, style PlaceholderStyle) (string, []any, error) {
	names := ExtractPlaceholders(sqlQuery)

	positions := make(map[string]int, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		value, ok := params[name]
		if !ok {
			return "", nil, fmt.Errorf("no value supplied for parameter :%s", name)
		}
		positions[name] = len(args) + 1
		args = append(args, value)
	}

	for name := range params {
		if _, ok := positions[name]; !ok {
			return "", nil, fmt.Errorf("parameter %q is supplied but not used in SQL", name)
		}
	}

	bound := placeholderRegex.ReplaceAllStringFunc(sqlQuery, func(match string) string {
		sub := placeholderRegex.FindStringSubmatch(match)
		return sub[1] + style.placeholder(positions[sub[2]])
	})

	return bound, args, nil
}
