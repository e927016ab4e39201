// Package period models the terms of a school year and classifies dates into them.
package period

import (
	"fmt"
	"time"

	"github.com/classbook/register-archive/internal/domain/shared"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// Scrutiny codes identify the evaluation session closing a term.
const (
	ScrutinyFirst  = "P" // first term of the year
	ScrutinySecond = "S" // intermediate term, only in three-term years
	ScrutinyFinal  = "F" // last term of the year
)

// Term is a contiguous, inclusive range of school days.
type Term struct {
	Ordinal  int
	Name     string
	Start    time.Time
	End      time.Time
	Scrutiny string
}

// Contains reports whether day lies inside the term, bounds included.
func (t Term) Contains(day time.Time) bool {
	d := timeutil.StartOfDay(day)
	return !d.Before(t.Start) && !d.After(t.End)
}

// IsFinal reports whether the term closes the school year.
func (t Term) IsFinal() bool {
	return t.Scrutiny == ScrutinyFinal
}

// Days returns the number of calendar days in the term.
func (t Term) Days() int {
	return timeutil.DaysBetween(t.Start, t.End) + 1
}

func (t Term) String() string {
	return fmt.Sprintf("%d:%s [%s..%s]", t.Ordinal, t.Name,
		timeutil.DayKey(t.Start), timeutil.DayKey(t.End))
}

// Settings holds the school-year boundaries a Calendar is built from.
// Names carries two or three term names; the third term, when present,
// runs from the day after SecondEnd up to YearEnd.
type Settings struct {
	YearLabel string
	YearStart time.Time
	FirstEnd  time.Time
	SecondEnd time.Time
	YearEnd   time.Time
	Names     []string
}

// Calendar is the ordered list of terms of one school year.
type Calendar struct {
	year  string
	terms []Term
}

// NewCalendar builds the term list and checks that the terms are contiguous.
func NewCalendar(s Settings) (*Calendar, error) {
	names := make([]string, 0, len(s.Names))
	for _, n := range s.Names {
		if n != "" {
			names = append(names, n)
		}
	}
	if len(names) < 2 || len(names) > 3 {
		return nil, shared.ErrTermsUnsupported
	}

	secondEnd := s.SecondEnd
	if len(names) == 2 && secondEnd.IsZero() {
		secondEnd = s.YearEnd
	}

	ends := []time.Time{s.FirstEnd, secondEnd}
	codes := []string{ScrutinyFirst, ScrutinyFinal}
	if len(names) == 3 {
		ends = append(ends, s.YearEnd)
		codes = []string{ScrutinyFirst, ScrutinySecond, ScrutinyFinal}
	}

	terms := make([]Term, 0, len(names))
	start := timeutil.StartOfDay(s.YearStart)
	for i, name := range names {
		end := timeutil.StartOfDay(ends[i])
		if end.Before(start) {
			return nil, shared.WrapError("period", "NewCalendar", shared.ErrValidation,
				fmt.Sprintf("term %q ends before it starts", name), shared.ErrTermsNotOrdered)
		}
		terms = append(terms, Term{
			Ordinal:  i + 1,
			Name:     name,
			Start:    start,
			End:      end,
			Scrutiny: codes[i],
		})
		start = timeutil.NextDay(end)
	}

	if !s.YearEnd.IsZero() && terms[len(terms)-1].End.After(timeutil.StartOfDay(s.YearEnd)) {
		return nil, shared.WrapError("period", "NewCalendar", shared.ErrValidation,
			"last term ends after the school year", shared.ErrTermsNotOrdered)
	}

	return &Calendar{year: s.YearLabel, terms: terms}, nil
}

// Year returns the school year label, e.g. "2024/2025".
func (c *Calendar) Year() string {
	return c.year
}

// Terms returns a copy of the ordered term list.
func (c *Calendar) Terms() []Term {
	out := make([]Term, len(c.terms))
	copy(out, c.terms)
	return out
}

// First returns the first day of the school year.
func (c *Calendar) First() time.Time {
	return c.terms[0].Start
}

// Last returns the last day covered by any term.
func (c *Calendar) Last() time.Time {
	return c.terms[len(c.terms)-1].End
}

// Classify returns the term holding day: the first term, in order, whose end
// is not before day. Days outside the year are a data-integrity error.
func (c *Calendar) Classify(day time.Time) (Term, error) {
	d := timeutil.StartOfDay(day)
	if d.Before(c.First()) {
		return Term{}, shared.WrapError("period", "Classify", shared.ErrDataIntegrity,
			timeutil.DayKey(d)+" precedes the school year", shared.ErrDateOutsideYear)
	}
	for _, t := range c.terms {
		if !d.After(t.End) {
			return t, nil
		}
	}
	return Term{}, shared.WrapError("period", "Classify", shared.ErrDataIntegrity,
		timeutil.DayKey(d)+" follows the last term", shared.ErrDateOutsideYear)
}
