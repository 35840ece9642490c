package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed-width so stored timestamps compare correctly as
// text. All times are stored in UTC.
const timeLayout = "2006-01-02 15:04:05.000000000"

const dateLayout = "2006-01-02"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// fmtTimePtr returns a bind value for a nullable timestamp column.
func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(timeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func scanTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return parseTime(ns.String)
}

func scanTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullStr returns a bind value for a nullable text column, mapping the
// empty string to NULL.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
