package repository

import (
	"fmt"
	"time"

	"github.com/iliyamo/exam-registration/internal/model"
)

// MySQL hands back time.Time for DATE/DATETIME columns (parseTime=true)
// while SQLite stores the same values as text. dbTime accepts both.
type dbTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
	model.DateLayout,
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if p, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = p.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unparsable time %q", s)
}

// dateString renders a scanned DATE column as YYYY-MM-DD.
func (t dbTime) dateString() string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(model.DateLayout)
}

// timestamp formats t for storage in DATETIME/TEXT columns. The layout
// is understood by both drivers and sorts lexically.
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
