package solar

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the canonical timestamp form used by every stored record and
// API payload: second precision, no timezone.
const TimeLayout = "2006-01-02T15:04:05"

// acceptedLayouts are tried in order when parsing user supplied timestamps.
// Zone offsets are tolerated on input and dropped; the wall-clock reading is
// what gets kept.
var acceptedLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// Timestamp is a wall-clock time at second precision without timezone. It
// wraps time.Time so callers keep the usual comparison helpers.
type Timestamp struct {
	time.Time
}

// NewTimestamp normalizes t to canonical precision, discarding the zone and
// sub-second digits.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// Now returns the current UTC wall clock as a Timestamp.
func Now() Timestamp {
	return NewTimestamp(time.Now().UTC())
}

// ParseTimestamp accepts the canonical layout plus the common spreadsheet
// variants. The error reports the offending value so ingestion can surface it.
func ParseTimestamp(value string) (Timestamp, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Timestamp{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// String renders the canonical layout.
func (ts Timestamp) String() string {
	return ts.Format(TimeLayout)
}

// TruncateHour floors to the start of the hour.
func (ts Timestamp) TruncateHour() Timestamp {
	return Timestamp{ts.Time.Truncate(time.Hour)}
}

// DayStart floors to midnight.
func (ts Timestamp) DayStart() Timestamp {
	return Timestamp{time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)}
}

// AddHours offsets by whole hours.
func (ts Timestamp) AddHours(n int) Timestamp {
	return Timestamp{ts.Time.Add(time.Duration(n) * time.Hour)}
}

// AddDays offsets by whole days.
func (ts Timestamp) AddDays(n int) Timestamp {
	return Timestamp{ts.Time.AddDate(0, 0, n)}
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + ts.Format(TimeLayout) + `"`), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// Scan implements sql.Scanner so pgx can populate Timestamp columns.
func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts = NewTimestamp(v)
		return nil
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		*ts = parsed
		return nil
	case nil:
		*ts = Timestamp{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", src)
	}
}

// Value implements driver.Valuer.
func (ts Timestamp) Value() (driver.Value, error) {
	if ts.IsZero() {
		return nil, nil
	}
	return ts.Time, nil
}
