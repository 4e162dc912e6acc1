package repository

import (
	"fmt"
	"strings"
	"time"
)

// sqliteTimeLayouts are the text forms SQLite returns for datetime aggregates
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// aggregateTime scans MAX(...) over a datetime column. MySQL and Postgres return a time,
// SQLite returns text because aggregates carry no declared type.
type aggregateTime struct {
	Time  time.Time
	Valid bool
}

func (t *aggregateTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into aggregateTime", value)
	}
}

func (t *aggregateTime) parse(raw string) error {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "Z")
	for _, layout := range sqliteTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as a time", raw)
}
