package timeutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItalianLabels(t *testing.T) {
	d := Date(2024, 10, 14) // Monday

	assert.Equal(t, "Lun", WeekdayShort(d))
	assert.Equal(t, "Lunedì", WeekdayName(d))
	assert.Equal(t, "OTT", MonthShort(d.Month()))
	assert.Equal(t, "Ottobre", MonthName(d.Month()))
	assert.Equal(t, "Lunedì 14 Ottobre 2024", FormatLong(d))
	assert.Equal(t, "14/10/2024", FormatDate(d))
	assert.Equal(t, "", MonthShort(time.Month(13)))
}

func TestEachDay(t *testing.T) {
	var keys []string
	err := EachDay(Date(2024, 2, 27), Date(2024, 3, 1), func(day time.Time) error {
		keys = append(keys, DayKey(day))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}, keys)

	stop := errors.New("stop")
	count := 0
	err = EachDay(Date(2024, 1, 1), Date(2024, 1, 31), func(time.Time) error {
		count++
		if count == 3 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, count)
}

func TestDaysBetweenAndSunday(t *testing.T) {
	assert.Equal(t, 7, DaysBetween(Date(2024, 9, 1), Date(2024, 9, 8)))
	assert.True(t, IsSunday(Date(2024, 9, 8)))
	assert.False(t, IsSunday(Date(2024, 9, 9)))
}

func TestParseDayMonth(t *testing.T) {
	d, err := ParseDayMonth("31/01", 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-31", DayKey(d))

	_, err = ParseDayMonth("31-01", 2025)
	assert.Error(t, err)
}
