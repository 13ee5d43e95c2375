package export

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coursekit/warehouse-engine/pkg/adapters/datasource"
	enginesql "github.com/coursekit/warehouse-engine/pkg/sql"
)

// LimitExceededMarker is appended as a final sentinel row when the row
// limit is exceeded, so downstream consumers can detect truncation
// without counting rows.
const LimitExceededMarker = "-- ROW LIMIT EXCEEDED --"

const dateTimeFormat = "2006-01-02 15:04:05"

// Serializer streams a result cursor to CSV: always-quoted fields,
// comma separated, CRLF terminated, header row first.
type Serializer struct {
	// WWWRoot replaces the %%WWWROOT%% output token in cell values.
	WWWRoot string

	// RowLimit caps the number of data rows written. Rows beyond the cap
	// are not written; a sentinel row marks the truncation.
	RowLimit int
}

// Serialize consumes the cursor lazily and writes the CSV to the sink.
// Headers are recovered from the original query text. Returns the number
// of data rows written and whether the limit was exceeded.
func (s *Serializer) Serialize(cur datasource.Cursor, querySQL string, sink io.Writer) (rows int, limitExceeded bool, err error) {
	names := cur.Columns()
	headers := enginesql.PrettifyColumnNames(names, querySQL)
	displayed, links, suppressed := enginesql.LinkColumns(headers)
	if err := s.writeRow(sink, displayed); err != nil {
		return 0, false, err
	}

	for cur.Next() {
		values, err := cur.Values()
		if err != nil {
			return rows, false, err
		}

		if s.RowLimit > 0 && rows >= s.RowLimit {
			limitExceeded = true
			break
		}

		cells := s.renderRow(names, values, links, suppressed)
		if err := s.writeRow(sink, cells); err != nil {
			return rows, false, err
		}
		rows++
	}

	if err := cur.Err(); err != nil {
		return rows, limitExceeded, err
	}

	if limitExceeded {
		if err := s.writeRow(sink, []string{LimitExceededMarker}); err != nil {
			return rows, true, err
		}
	}

	return rows, limitExceeded, nil
}

// renderRow formats one data row: date columns become date-time strings,
// link-url columns are folded into their display column as hyperlinks,
// everything else passes through.
func (s *Serializer) renderRow(names []string, values []any, links map[int]int, suppressed map[int]bool) []string {
	cells := make([]string, 0, len(values))
	for i := range values {
		if suppressed[i] {
			continue
		}

		cell := formatValue(names[i], values[i])
		if j, ok := links[i]; ok && j < len(values) {
			if target := formatValue(names[j], values[j]); validURL(target) {
				cell = fmt.Sprintf("<a href=%q>%s</a>", target, cell)
			}
		}
		cells = append(cells, cell)
	}
	return cells
}

// writeRow quotes every field (internal quotes doubled), substitutes the
// output tokens and terminates the row with CRLF.
func (s *Serializer) writeRow(sink io.Writer, cells []string) error {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		cell = enginesql.SubstituteOutputTokens(cell, s.WWWRoot)
		escaped[i] = `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
	}

	if _, err := io.WriteString(sink, strings.Join(escaped, ",")+"\r\n"); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return nil
}

// formatValue renders a single raw value as text. Columns whose name
// starts or ends with "date" and hold a positive integer are rendered as
// a human-readable timestamp; zero and negative values pass through raw.
func formatValue(name string, value any) string {
	if value == nil {
		return ""
	}

	if enginesql.IsDateColumn(name) {
		if ts, ok := integerValue(value); ok && ts > 0 {
			return time.Unix(ts, 0).UTC().Format(dateTimeFormat)
		}
	}

	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(dateTimeFormat)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

// integerValue extracts an int64 from native integer types and from
// strings that look exactly like an integer.
func integerValue(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int:
		return int64(v), true
	case uint32:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || strconv.FormatInt(n, 10) != v {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// validURL applies strict URL syntax validation to a candidate link
// target: absolute http(s) or ftp URL with a host and no credentials.
func validURL(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "http", "https", "ftp":
	default:
		return false
	}

	return u.Host != "" && u.User == nil
}
