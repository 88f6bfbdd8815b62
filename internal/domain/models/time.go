package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"PersonalQT/pkg/util"
)

// Date is a calendar day, encoded as "2006-01-02".
type Date struct {
	time.Time
}

// NewDate truncates t to its day.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := util.ParseDate(s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return util.FormatDate(d.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if t, err := util.ParseDate(s); err == nil {
		*d = Date{t}
		return nil
	}
	t, ok := util.ParseTime(s)
	if !ok {
		return fmt.Errorf("date: cannot parse %q", s)
	}
	*d = Date{util.TruncateDay(t.UTC())}
	return nil
}

// Timestamp is a point in time. The backend emits naive ISO timestamps
// (no zone), which are read as UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, ok := util.ParseTime(s)
	if !ok {
		return fmt.Errorf("timestamp: cannot parse %q", s)
	}
	*t = Timestamp{parsed}
	return nil
}

// ValidationValue exposes Date and Timestamp to the validator as time.Time
// so "required" checks for a non-zero value.
func ValidationValue(v reflect.Value) interface{} {
	switch x := v.Interface().(type) {
	case Date:
		return x.Time
	case Timestamp:
		return x.Time
	}
	return nil
}
