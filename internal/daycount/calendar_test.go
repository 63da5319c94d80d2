package daycount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjust_None(t *testing.T) {
	saturday := date(2024, time.June, 1)
	adjusted, err := Adjust(saturday, AdjustNone, nil)
	require.NoError(t, err)
	assert.Equal(t, saturday, adjusted)
}

func TestAdjust_Following(t *testing.T) {
	saturday := date(2024, time.June, 1)
	adjusted, err := Adjust(saturday, AdjustFollowing, nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.June, 3), adjusted)
}

func TestAdjust_Preceding(t *testing.T) {
	sunday := date(2024, time.June, 2)
	adjusted, err := Adjust(sunday, AdjustPreceding, nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.May, 31), adjusted)
}

func TestAdjust_ModifiedFollowing_CrossesMonth(t *testing.T) {
	// Aug 31 2024 is a Saturday; following would land in September, so
	// modified following falls back to Friday Aug 30.
	saturday := date(2024, time.August, 31)
	adjusted, err := Adjust(saturday, AdjustModifiedFollowing, nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.August, 30), adjusted)
}

func TestAdjust_ModifiedFollowing_StaysInMonth(t *testing.T) {
	saturday := date(2024, time.June, 1)
	adjusted, err := Adjust(saturday, AdjustModifiedFollowing, nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.June, 3), adjusted)
}

func TestAdjust_ModifiedPreceding_CrossesMonth(t *testing.T) {
	// Jun 1 2024 is a Saturday; preceding would land in May, so modified
	// preceding rolls forward to Monday Jun 3.
	saturday := date(2024, time.June, 1)
	adjusted, err := Adjust(saturday, AdjustModifiedPreceding, nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.June, 3), adjusted)
}

func TestAdjust_SkipsHolidays(t *testing.T) {
	cal := NewHolidayCalendar()
	cal.AddHoliday(date(2024, time.June, 3)) // Monday

	saturday := date(2024, time.June, 1)
	adjusted, err := Adjust(saturday, AdjustFollowing, cal)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.June, 4), adjusted)
}

func TestAdjust_UnknownMode(t *testing.T) {
	_, err := Adjust(date(2024, time.June, 1), AdjustMode("nearest"), nil)
	assert.Error(t, err)
}

func TestHolidayCalendar_Recurring(t *testing.T) {
	cal := NewHolidayCalendar()
	cal.AddRecurring(time.August, 15)

	assert.True(t, cal.IsHoliday(date(2024, time.August, 15)))
	assert.True(t, cal.IsHoliday(date(2031, time.August, 15)))
	assert.False(t, cal.IsHoliday(date(2024, time.August, 16)))
}

func TestHolidayCalendar_RecurringFeb29(t *testing.T) {
	cal := NewHolidayCalendar()
	cal.AddRecurring(time.February, 29)

	// Matches in leap years, silently absent otherwise.
	assert.True(t, cal.IsHoliday(date(2024, time.February, 29)))
	assert.False(t, cal.IsHoliday(date(2025, time.February, 28)))
	assert.False(t, cal.IsHoliday(date(2025, time.March, 1)))
}

func TestHolidayCalendar_OneOff(t *testing.T) {
	cal := NewHolidayCalendar()
	cal.AddHoliday(date(2024, time.October, 2))

	assert.True(t, cal.IsHoliday(date(2024, time.October, 2)))
	assert.False(t, cal.IsHoliday(date(2025, time.October, 2)))
}

func TestIsBusinessDay(t *testing.T) {
	cal := NewHolidayCalendar()
	cal.AddHoliday(date(2024, time.June, 5)) // Wednesday

	assert.False(t, cal.IsBusinessDay(date(2024, time.June, 1))) // Saturday
	assert.False(t, cal.IsBusinessDay(date(2024, time.June, 2))) // Sunday
	assert.False(t, cal.IsBusinessDay(date(2024, time.June, 5)))
	assert.True(t, cal.IsBusinessDay(date(2024, time.June, 4)))
}
