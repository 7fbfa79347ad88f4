package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day abstraction (the ledger is keyed by days, not instants)
// =============================================================================

// Date is a calendar day in UTC. It is the canonical key for work-day
// entries: two entries with equal Dates describe the same working day
// regardless of the wall-clock time they were recorded at.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a date in "2006-01-02" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return DateOf(d.Time.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.Time.AddDate(0, n, 0)) }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// =============================================================================
// DATE RANGE - Inclusive [From, To] window for listing and aggregation
// =============================================================================

// DateRange is an inclusive calendar window. A range with From after To is
// malformed and rejected by Validate; an empty but well-formed range simply
// yields no entries.
type DateRange struct {
	From Date
	To   Date
}

func NewDateRange(from, to Date) DateRange {
	return DateRange{From: from, To: to}
}

// MonthRange returns the range covering a whole calendar month.
func MonthRange(year int, month time.Month) DateRange {
	start := NewDate(year, month, 1)
	end := DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
	return DateRange{From: start, To: end}
}

// Contains returns true if the date is within [From, To].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.From) && d.BeforeOrEqual(r.To)
}

// Validate rejects ranges with end before start.
func (r DateRange) Validate() error {
	if r.To.Before(r.From) {
		return &ValidationError{Field: "range", Message: "end before start"}
	}
	return nil
}

func (r DateRange) String() string {
	return "[" + r.From.String() + ", " + r.To.String() + "]"
}
