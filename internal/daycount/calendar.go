package daycount

import (
	"time"

	customError "github.com/crednine/loan-engine/pkg/errors"
)

// AdjustMode is a business-day adjustment rule.
type AdjustMode string

const (
	AdjustNone              AdjustMode = "none"
	AdjustFollowing         AdjustMode = "following"
	AdjustPreceding         AdjustMode = "preceding"
	AdjustModifiedFollowing AdjustMode = "modified_following"
	AdjustModifiedPreceding AdjustMode = "modified_preceding"
)

// ParseAdjustMode validates an adjustment mode string.
func ParseAdjustMode(s string) (AdjustMode, error) {
	switch AdjustMode(s) {
	case AdjustNone, AdjustFollowing, AdjustPreceding, AdjustModifiedFollowing, AdjustModifiedPreceding:
		return AdjustMode(s), nil
	default:
		return "", customError.NewValidationError(
			"adjust_mode", "unsupported adjustment mode: "+s, customError.ErrUnknownAdjustMode)
	}
}

// HolidayCalendar holds one-off holidays and yearly-recurring holidays.
// Recurring entries are expanded against the requested year; a Feb-29
// recurrence simply never matches in a non-leap year.
type HolidayCalendar struct {
	oneOff    map[string]struct{}
	recurring map[[2]int]struct{} // month, day
}

// NewHolidayCalendar returns an empty calendar.
func NewHolidayCalendar() *HolidayCalendar {
	return &HolidayCalendar{
		oneOff:    make(map[string]struct{}),
		recurring: make(map[[2]int]struct{}),
	}
}

// AddHoliday registers a one-off holiday.
func (c *HolidayCalendar) AddHoliday(t time.Time) {
	c.oneOff[dateOnly(t).Format("2006-01-02")] = struct{}{}
}

// AddRecurring registers a holiday that repeats every year.
func (c *HolidayCalendar) AddRecurring(month time.Month, day int) {
	c.recurring[[2]int{int(month), day}] = struct{}{}
}

// IsHoliday checks one-off and recurring holidays for the given date.
func (c *HolidayCalendar) IsHoliday(t time.Time) bool {
	if c == nil {
		return false
	}
	t = dateOnly(t)
	if _, ok := c.oneOff[t.Format("2006-01-02")]; ok {
		return true
	}
	_, ok := c.recurring[[2]int{int(t.Month()), t.Day()}]
	return ok
}

// IsBusinessDay checks weekends and the holiday calendar.
func (c *HolidayCalendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !c.IsHoliday(t)
}

// Adjust rolls a date onto a business day under the given mode. The
// "modified" variants fall back to the opposite direction only when the
// naive roll crosses a month boundary.
func Adjust(t time.Time, mode AdjustMode, cal *HolidayCalendar) (time.Time, error) {
	t = dateOnly(t)
	if cal == nil {
		cal = NewHolidayCalendar()
	}

	switch mode {
	case AdjustNone:
		return t, nil
	case AdjustFollowing:
		return rollForward(t, cal), nil
	case AdjustPreceding:
		return rollBackward(t, cal), nil
	case AdjustModifiedFollowing:
		adjusted := rollForward(t, cal)
		if adjusted.Month() != t.Month() {
			return rollBackward(t, cal), nil
		}
		return adjusted, nil
	case AdjustModifiedPreceding:
		adjusted := rollBackward(t, cal)
		if adjusted.Month() != t.Month() {
			return rollForward(t, cal), nil
		}
		return adjusted, nil
	default:
		return time.Time{}, customError.NewValidationError(
			"adjust_mode", "unsupported adjustment mode: "+string(mode), customError.ErrUnknownAdjustMode)
	}
}

func rollForward(t time.Time, cal *HolidayCalendar) time.Time {
	for !cal.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func rollBackward(t time.Time, cal *HolidayCalendar) time.Time {
	for !cal.IsBusinessDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
