package sql

import (
	"regexp"
	"strings"
)

// dateColumnRegex matches column names that start or end with "date".
// Such columns hold unix timestamps and are formatted as date-time
// strings in the output when the value is a positive integer.
var dateColumnRegex = regexp.MustCompile(`(?i)^date|date$`)

// IsDateColumn reports whether a column name denotes a timestamp column.
func IsDateColumn(name string) bool {
	return dateColumnRegex.MatchString(name)
}

// PrettifyColumnNames derives display headers from the raw result-set
// column names. Databases tend to return columns lower-cased, so each
// name is matched back against the original query text with a
// case-insensitive search to recover the author's original case, then
// underscores are replaced with spaces.
func PrettifyColumnNames(rawNames []string, querySQL string) []string {
	headers := make([]string, len(rawNames))
	for i, name := range rawNames {
		headers[i] = strings.ReplaceAll(originalCase(name, querySQL), "_", " ")
	}
	return headers
}

// originalCase finds the column name as the author wrote it in the
// SELECT list, falling back to the raw name when no match is found.
func originalCase(name, querySQL string) string {
	re, err := regexp.Compile(`(?is)SELECT.*?\s(` + regexp.QuoteMeta(name) + `)\b`)
	if err != nil {
		return name
	}
	if match := re.FindStringSubmatch(querySQL); match != nil {
		return match[1]
	}
	return name
}

const linkURLSuffix = " link url"

// LinkColumns pairs each header "X" with a companion header "X link url".
// It returns the displayed headers (link-url columns suppressed), a map
// from raw column index to the raw index of its link-url source, and the
// set of raw indices that are suppressed from output.
func LinkColumns(headers []string) (displayed []string, links map[int]int, suppressed map[int]bool) {
	byName := make(map[string]int, len(headers))
	for i, h := range headers {
		byName[h] = i
	}

	links = make(map[int]int)
	suppressed = make(map[int]bool)
	for i, h := range headers {
		if strings.HasSuffix(h, linkURLSuffix) {
			if _, ok := byName[strings.TrimSuffix(h, linkURLSuffix)]; ok {
				// Link url source for another column; not displayed.
				suppressed[i] = true
				continue
			}
		}
		if j, ok := byName[h+linkURLSuffix]; ok {
			links[i] = j
		}
		displayed = append(displayed, h)
	}

	return displayed, links, suppressed
}
