package domain

import (
	"math"
	"time"
)

// DateLayout is the storage and wire format for schedule dates.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// ScheduleDate keeps a user-authored date apart from the value inherited
// from children, so that recomputing inheritance never loses what the user
// typed and a removed child shrinks the range back.
type ScheduleDate struct {
	Explicit  *time.Time
	Inherited *time.Time
}

// Explicit returns a ScheduleDate holding only a user-authored value.
func Explicit(t time.Time) ScheduleDate {
	d := TruncateDay(t)
	return ScheduleDate{Explicit: &d}
}

// IsSet reports whether either value is present.
func (d ScheduleDate) IsSet() bool {
	return d.Explicit != nil || d.Inherited != nil
}

// IsInherited reports whether the effective value comes from children.
func (d ScheduleDate) IsInherited() bool {
	return d.Explicit == nil && d.Inherited != nil
}

// EffectiveStart resolves the date as a range start: the earlier of the two
// values, so inheritance only ever widens an explicit start.
func (d ScheduleDate) EffectiveStart() *time.Time {
	return pick(d.Explicit, d.Inherited, func(a, b time.Time) bool { return a.Before(b) })
}

// EffectiveEnd resolves the date as a range end: the later of the two values.
func (d ScheduleDate) EffectiveEnd() *time.Time {
	return pick(d.Explicit, d.Inherited, func(a, b time.Time) bool { return a.After(b) })
}

func pick(a, b *time.Time, better func(a, b time.Time) bool) *time.Time {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	case better(*b, *a):
		v := *b
		return &v
	default:
		v := *a
		return &v
	}
}

func (d ScheduleDate) clone() ScheduleDate {
	var out ScheduleDate
	if d.Explicit != nil {
		v := *d.Explicit
		out.Explicit = &v
	}
	if d.Inherited != nil {
		v := *d.Inherited
		out.Inherited = &v
	}
	return out
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns ceil((end-start)/1 day), floored at zero.
func DaysBetween(start, end time.Time) int {
	diff := end.Sub(start)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(float64(diff) / float64(day)))
}

// AddDays returns t moved by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// ParseDate parses a YYYY-MM-DD string. Full RFC 3339 timestamps are
// accepted too and truncated to their date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return TruncateDay(t), nil
}

// ParseOptionalDate parses s, returning nil for an empty string.
func ParseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatOptionalDate renders t as YYYY-MM-DD, or "" for nil.
func FormatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
