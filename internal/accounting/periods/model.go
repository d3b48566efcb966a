package periods

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PeriodType enumerates the calendar granularities.
type PeriodType string

const (
	PeriodTypeMonth   PeriodType = "MONTH"
	PeriodTypeQuarter PeriodType = "QUARTER"
	PeriodTypeYear    PeriodType = "YEAR"
)

// MaxPeriod returns the highest period number allowed for the type.
func (t PeriodType) MaxPeriod() int {
	switch t {
	case PeriodTypeMonth:
		return 12
	case PeriodTypeQuarter:
		return 4
	case PeriodTypeYear:
		return 1
	}
	return 0
}

// Valid reports whether t is a known type.
func (t PeriodType) Valid() bool { return t.MaxPeriod() > 0 }

// FiscalPeriod represents an accounting window journal entries are filed
// against. EndDate is the last calendar day of the period.
type FiscalPeriod struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Type      PeriodType `json:"type"`
	Year      int        `json:"year"`
	Period    int        `json:"period"`
	StartDate time.Time  `json:"startDate"`
	EndDate   time.Time  `json:"endDate"`
	IsActive  bool       `json:"isActive"`
	IsClosed  bool       `json:"isClosed"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Key identifies a period independent of its id.
type Key struct {
	Type   PeriodType
	Year   int
	Period int
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%04d-%02d", k.Type, k.Year, k.Period)
}

// Key returns the natural key of the period.
func (p FiscalPeriod) Key() Key {
	return Key{Type: p.Type, Year: p.Year, Period: p.Period}
}

// Contains reports whether t falls on or between the start and end days.
func (p FiscalPeriod) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(truncateDay(p.StartDate)) && !day.After(truncateDay(p.EndDate))
}

// IsOpen reports whether entries may be filed against the period.
func (p FiscalPeriod) IsOpen() bool {
	return p.IsActive && !p.IsClosed
}

// Overlaps reports whether the date ranges of a and b intersect.
func (p FiscalPeriod) Overlaps(start, end time.Time) bool {
	return !truncateDay(p.StartDate).After(truncateDay(end)) && !truncateDay(start).After(truncateDay(p.EndDate))
}

// CreateInput carries the fields accepted by CreateFiscalPeriod.
type CreateInput struct {
	Name      string     `json:"name" validate:"required"`
	Type      PeriodType `json:"type" validate:"required,oneof=MONTH QUARTER YEAR"`
	Year      int        `json:"year" validate:"required,gte=1900,lte=9999"`
	Period    int        `json:"period" validate:"required,gte=1,lte=12"`
	StartDate time.Time  `json:"startDate" validate:"required"`
	EndDate   time.Time  `json:"endDate" validate:"required"`
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Year int
	Type PeriodType
}

func (f ListFilter) matches(p FiscalPeriod) bool {
	if f.Year != 0 && p.Year != f.Year {
		return false
	}
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first and last day of the month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// QuarterBounds returns the first and last day of the quarter.
func QuarterBounds(year, quarter int) (time.Time, time.Time) {
	start := time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 3, -1)
}

// YearBounds returns January 1 and December 31.
func YearBounds(year int) (time.Time, time.Time) {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// MonthInput builds the standard monthly period input, e.g. "January 2025".
func MonthInput(year int, month time.Month) CreateInput {
	start, end := MonthBounds(year, month)
	return CreateInput{
		Name:      fmt.Sprintf("%s %d", month, year),
		Type:      PeriodTypeMonth,
		Year:      year,
		Period:    int(month),
		StartDate: start,
		EndDate:   end,
	}
}

// QuarterInput builds the standard quarterly period input, e.g. "Q1 2025".
func QuarterInput(year, quarter int) CreateInput {
	start, end := QuarterBounds(year, quarter)
	return CreateInput{
		Name:      fmt.Sprintf("Q%d %d", quarter, year),
		Type:      PeriodTypeQuarter,
		Year:      year,
		Period:    quarter,
		StartDate: start,
		EndDate:   end,
	}
}

// YearInput builds the fiscal-year period input, e.g. "FY 2025".
func YearInput(year int) CreateInput {
	start, end := YearBounds(year)
	return CreateInput{
		Name:      fmt.Sprintf("FY %d", year),
		Type:      PeriodTypeYear,
		Year:      year,
		Period:    1,
		StartDate: start,
		EndDate:   end,
	}
}
