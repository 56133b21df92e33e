package store

// convert.go holds the small conversions between stored text values and
// Go types. The sunroof column is TEXT ("True"/"False") for compatibility
// with the seed dataset; accept the common boolean spellings on the way in.

import (
	"fmt"
	"strings"
	"time"
)

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// dateInputLayouts are the accepted date formats for seed files, most
// specific first. Stored values always use dateLayout.
var dateInputLayouts = []string{
	dateLayout,
	"2006/01/02",
	"01/02/2006",
	"2 Jan 2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
}
