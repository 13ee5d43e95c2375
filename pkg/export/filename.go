package export

import (
	"fmt"
	"strings"
	"time"
)

// Filename derives the output file name for an export run:
//
//	<userID>-<itemID>-<quizID>-<queryName>-<unix>-<YYYY-MM-DD-HH-MM-SS>.csv
//
// Spaces in the query name become underscores. Both timestamp forms are
// rendered from the same instant, captured once at run start. The name
// is unique per run because the item id is strictly increasing and the
// blob store never overwrites.
func Filename(userID, itemID, quizID int64, queryName string, startedAt time.Time) string {
	return fmt.Sprintf("%d-%d-%d-%s-%d-%s.csv",
		userID,
		itemID,
		quizID,
		strings.ReplaceAll(queryName, " ", "_"),
		startedAt.Unix(),
		startedAt.Format("2006-01-02-15-04-05"),
	)
}
