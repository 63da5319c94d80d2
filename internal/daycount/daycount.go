package daycount

import (
	"time"

	"github.com/shopspring/decimal"

	customError "github.com/crednine/loan-engine/pkg/errors"
)

// Convention is a day-count convention identifier.
type Convention string

const (
	Thirty360 Convention = "30/360"
	Act365    Convention = "ACT/365"
	Act360    Convention = "ACT/360"
	ActAct    Convention = "ACT/ACT"
)

// Parse validates a convention string. Unknown strings are rejected, never
// silently defaulted.
func Parse(s string) (Convention, error) {
	switch Convention(s) {
	case Thirty360, Act365, Act360, ActAct:
		return Convention(s), nil
	default:
		return "", customError.NewValidationError(
			"day_count_convention", "unsupported convention: "+s, customError.ErrUnknownConvention)
	}
}

// YearFraction converts the interval [start, end) into a fraction of a
// year under the given convention. start >= end yields zero, never a
// negative fraction.
//
// ACT/365 always divides actual days by 365, so a full leap year comes out
// as 366/365 rather than 1. ACT/ACT splits a period crossing a
// calendar-year boundary into sub-periods, each divided by its own year
// length.
func YearFraction(start, end time.Time, conv Convention) (decimal.Decimal, error) {
	start = dateOnly(start)
	end = dateOnly(end)
	if !start.Before(end) {
		return decimal.Zero, nil
	}

	switch conv {
	case Thirty360:
		return thirty360(start, end), nil
	case Act365:
		days := decimal.NewFromInt(int64(actualDays(start, end)))
		return days.Div(decimal.NewFromInt(365)), nil
	case Act360:
		days := decimal.NewFromInt(int64(actualDays(start, end)))
		return days.Div(decimal.NewFromInt(360)), nil
	case ActAct:
		return actAct(start, end), nil
	default:
		return decimal.Zero, customError.NewValidationError(
			"day_count_convention", "unsupported convention: "+string(conv), customError.ErrUnknownConvention)
	}
}

// DaysInYear returns the denominator the convention uses for a daily rate
// in the given calendar year.
func DaysInYear(conv Convention, year int) (decimal.Decimal, error) {
	switch conv {
	case Thirty360, Act360:
		return decimal.NewFromInt(360), nil
	case Act365:
		return decimal.NewFromInt(365), nil
	case ActAct:
		return decimal.NewFromInt(int64(yearLength(year))), nil
	default:
		return decimal.Zero, customError.NewValidationError(
			"day_count_convention", "unsupported convention: "+string(conv), customError.ErrUnknownConvention)
	}
}

// thirty360 applies the US 30/360 rule: day-of-month 31 clamps to 30 on
// both ends before 360*dY + 30*dM + dD.
func thirty360(start, end time.Time) decimal.Decimal {
	d1, d2 := start.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 {
		d2 = 30
	}

	days := 360*(end.Year()-start.Year()) +
		30*(int(end.Month())-int(start.Month())) +
		(d2 - d1)

	return decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(360))
}

// actAct sums per-calendar-year sub-fractions, each over its own year
// length (365 or 366).
func actAct(start, end time.Time) decimal.Decimal {
	total := decimal.Zero
	for year := start.Year(); year <= end.Year(); year++ {
		subStart := start
		yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		if yearStart.After(subStart) {
			subStart = yearStart
		}
		subEnd := end
		nextYear := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		if nextYear.Before(subEnd) {
			subEnd = nextYear
		}
		if !subStart.Before(subEnd) {
			continue
		}
		days := decimal.NewFromInt(int64(actualDays(subStart, subEnd)))
		total = total.Add(days.Div(decimal.NewFromInt(int64(yearLength(year)))))
	}
	return total
}

func actualDays(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

func yearLength(year int) int {
	if isLeapYear(year) {
		return 366
	}
	return 365
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
