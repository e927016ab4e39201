package period

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/pkg/timeutil"
)

func twoTermSettings() Settings {
	return Settings{
		YearLabel: "2024/2025",
		YearStart: timeutil.Date(2024, 9, 12),
		FirstEnd:  timeutil.Date(2025, 1, 31),
		YearEnd:   timeutil.Date(2025, 6, 10),
		Names:     []string{"Primo Quadrimestre", "Secondo Quadrimestre"},
	}
}

func TestNewCalendar_TwoTerms(t *testing.T) {
	cal, err := NewCalendar(twoTermSettings())
	require.NoError(t, err)

	terms := cal.Terms()
	require.Len(t, terms, 2)
	assert.Equal(t, ScrutinyFirst, terms[0].Scrutiny)
	assert.Equal(t, ScrutinyFinal, terms[1].Scrutiny)
	assert.Equal(t, "2025-02-01", timeutil.DayKey(terms[1].Start))
	assert.Equal(t, "2025-06-10", timeutil.DayKey(terms[1].End))
	assert.Equal(t, "2024/2025", cal.Year())
}

func TestNewCalendar_ThreeTerms(t *testing.T) {
	s := twoTermSettings()
	s.FirstEnd = timeutil.Date(2024, 12, 21)
	s.SecondEnd = timeutil.Date(2025, 3, 15)
	s.Names = []string{"Primo Trimestre", "Secondo Trimestre", "Terzo Trimestre"}

	cal, err := NewCalendar(s)
	require.NoError(t, err)

	terms := cal.Terms()
	require.Len(t, terms, 3)
	assert.Equal(t, []string{"P", "S", "F"}, []string{terms[0].Scrutiny, terms[1].Scrutiny, terms[2].Scrutiny})
	assert.Equal(t, "2025-03-16", timeutil.DayKey(terms[2].Start))

	assert.False(t, terms[1].IsFinal())
	assert.True(t, terms[2].IsFinal())
}

func TestNewCalendar_Rejects(t *testing.T) {
	s := twoTermSettings()
	s.Names = []string{"Unico"}
	_, err := NewCalendar(s)
	assert.ErrorIs(t, err, shared.ErrTermsUnsupported)

	s = twoTermSettings()
	s.FirstEnd = timeutil.Date(2024, 9, 1)
	_, err = NewCalendar(s)
	assert.True(t, shared.IsValidation(err))
}

func TestClassify_Boundaries(t *testing.T) {
	cal, err := NewCalendar(twoTermSettings())
	require.NoError(t, err)

	term, err := cal.Classify(timeutil.Date(2025, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, 1, term.Ordinal)

	term, err = cal.Classify(timeutil.Date(2025, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, term.Ordinal)

	_, err = cal.Classify(timeutil.Date(2025, 6, 11))
	assert.ErrorIs(t, err, shared.ErrDataIntegrity)

	_, err = cal.Classify(timeutil.Date(2024, 9, 11))
	assert.ErrorIs(t, err, shared.ErrDateOutsideYear)
}

// randomYear generates contiguous terms of random length plus a day inside them.
type randomYear struct {
	Settings Settings
	Offset   int
}

func (randomYear) Generate(r *rand.Rand, _ int) reflect.Value {
	start := timeutil.Date(2000+r.Intn(40), 1+r.Intn(12), 1+r.Intn(28))
	first := start.AddDate(0, 0, r.Intn(150))
	second := first.AddDate(0, 0, 1+r.Intn(150))
	end := second.AddDate(0, 0, 1+r.Intn(150))

	names := []string{"I", "II"}
	if r.Intn(2) == 0 {
		names = append(names, "III")
	} else {
		end = second
	}

	y := randomYear{
		Settings: Settings{YearStart: start, FirstEnd: first, SecondEnd: second, YearEnd: end, Names: names},
	}
	y.Offset = r.Intn(timeutil.DaysBetween(start, end) + 1)
	return reflect.ValueOf(y)
}

func TestClassify_TotalAndUnique(t *testing.T) {
	property := func(y randomYear) bool {
		cal, err := NewCalendar(y.Settings)
		if err != nil {
			return false
		}
		day := y.Settings.YearStart.AddDate(0, 0, y.Offset)

		term, err := cal.Classify(day)
		if err != nil || !term.Contains(day) {
			return false
		}

		matches := 0
		for _, t := range cal.Terms() {
			if t.Contains(day) {
				matches++
			}
		}
		return matches == 1
	}

	assert.NoError(t, quick.Check(property, &quick.Config{MaxCount: 500}))
}

func TestTerm_Days(t *testing.T) {
	term := Term{Start: timeutil.Date(2025, 2, 1), End: timeutil.Date(2025, 2, 28)}
	assert.Equal(t, 28, term.Days())
	assert.True(t, term.Contains(time.Date(2025, 2, 28, 13, 0, 0, 0, timeutil.SchoolTZ)))
}
