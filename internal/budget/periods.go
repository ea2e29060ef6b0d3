// Package budget spreads node costs over calendar periods by prorating each
// node's own cost across its date span.
package budget

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
)

var (
	ErrInvalidPeriod = errors.New("invalid period type")
	ErrInvalidRange  = errors.New("invalid date range")
	ErrInvalidLevel  = errors.New("invalid level")
	ErrInvalidMode   = errors.New("invalid allocation mode")
)

// PeriodType is the bucket granularity.
type PeriodType string

const (
	PeriodMonth   PeriodType = "month"
	PeriodQuarter PeriodType = "quarter"
	PeriodYear    PeriodType = "year"
)

// ParsePeriodType accepts month, quarter or year in any case.
func ParsePeriodType(s string) (PeriodType, error) {
	p := PeriodType(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q (want month, quarter or year)", ErrInvalidPeriod, s)
	}
	return p, nil
}

// Valid reports whether p is a known period type.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

// Period is one calendar bucket, half-open: [Start, End).
type Period struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DateRange is an inclusive calendar-day range.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Validate checks that From is not after To.
func (r DateRange) Validate() error {
	if domain.TruncateDay(r.To).Before(domain.TruncateDay(r.From)) {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidRange,
			r.From.Format(domain.DateLayout), r.To.Format(domain.DateLayout))
	}
	return nil
}

// Periods returns the calendar buckets covering the days from..to
// inclusive. The first and last buckets are whole calendar periods and may
// extend past the range.
func Periods(p PeriodType, from, to time.Time) ([]Period, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
	r := DateRange{From: from, To: to}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	limit := domain.AddDays(domain.TruncateDay(to), 1)
	var out []Period
	for start := periodStart(p, domain.TruncateDay(from)); start.Before(limit); {
		end := nextPeriodStart(p, start)
		out = append(out, Period{Label: periodLabel(p, start), Start: start, End: end})
		start = end
	}
	return out, nil
}

func periodStart(p PeriodType, t time.Time) time.Time {
	switch p {
	case PeriodQuarter:
		m := time.Month((int(t.Month())-1)/3*3 + 1)
		return time.Date(t.Year(), m, 1, 0, 0, 0, 0, time.UTC)
	case PeriodYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

func nextPeriodStart(p PeriodType, start time.Time) time.Time {
	switch p {
	case PeriodQuarter:
		return start.AddDate(0, 3, 0)
	case PeriodYear:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

func periodLabel(p PeriodType, start time.Time) string {
	switch p {
	case PeriodQuarter:
		return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	case PeriodYear:
		return fmt.Sprintf("%d", start.Year())
	default:
		return start.Format("2006-01")
	}
}
