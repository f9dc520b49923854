package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// SlotStatus is the persisted validity flag of a slot.
type SlotStatus string

const (
	SlotStatusValid   SlotStatus = "V"
	SlotStatusInvalid SlotStatus = "I"
)

// Valid reports whether the status is one of the known flags.
func (s SlotStatus) Valid() bool {
	return s == SlotStatusValid || s == SlotStatusInvalid
}

const (
	// ClockLayout is the canonical time-of-day representation.
	ClockLayout = "15:04:05"
	// DateLayout is the canonical calendar date representation.
	DateLayout = "2006-01-02"
	// MidnightCutoff is the default lower bound for end times.
	MidnightCutoff = "00:00:00"
)

// Slot is a campus time interval with a validity flag and an optional
// suspension window. (CampusID, StartTime) identifies it.
type Slot struct {
	CampusID       int64      `db:"campus_id" json:"campus_id"`
	StartTime      string     `db:"start_time" json:"start_time"`
	EndTime        string     `db:"end_time" json:"end_time"`
	Status         SlotStatus `db:"status" json:"status"`
	SuspendedFrom  *Date      `db:"suspended_from" json:"suspended_from,omitempty"`
	SuspendedUntil *Date      `db:"suspended_until" json:"suspended_until,omitempty"`
}

// SlotKey is the composite identity of a slot.
type SlotKey struct {
	CampusID  int64
	StartTime string
}

// Key returns the slot's composite identity.
func (s Slot) Key() SlotKey {
	return SlotKey{CampusID: s.CampusID, StartTime: s.StartTime}
}

// IsAllocatable reports whether the slot can be scheduled on the given
// reference date. Only the calendar day of today matters.
//
// A suspension end without a suspension start has no effect.
func (s Slot) IsAllocatable(today time.Time) bool {
	return s.IsAllocatableOn(DateOf(today))
}

// IsAllocatableOn is IsAllocatable for a calendar date.
func (s Slot) IsAllocatableOn(ref Date) bool {
	if s.Status != SlotStatusValid {
		return false
	}
	if s.SuspendedFrom == nil {
		return true
	}
	if s.SuspendedFrom.After(ref) {
		return true
	}
	return s.SuspendedUntil != nil && s.SuspendedUntil.Before(ref)
}

// FilterAllocatable keeps the slots allocatable on today, preserving order.
func FilterAllocatable(slots []Slot, today time.Time) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.IsAllocatable(today) {
			out = append(out, slot)
		}
	}
	return out
}

// NormalizeClock accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func NormalizeClock(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{ClockLayout, "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q, expected HH:MM:SS", raw)
}

// Date is a calendar day without a time-of-day component. It maps to a SQL
// DATE column and to a "YYYY-MM-DD" JSON string.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return DateOf(t), nil
}

// NewDate builds a Date pointer, convenient for optional fields.
func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Year: year, Month: month, Day: day}
}

// In returns midnight of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.compare(other) < 0
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.compare(other) > 0
}

// AddDays shifts the date by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

func (d Date) compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return d.Year - other.Year
	case d.Month != other.Month:
		return int(d.Month) - int(other.Month)
	default:
		return d.Day - other.Day
	}
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(raw string) error {
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer, binding the date as a YYYY-MM-DD string.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}
