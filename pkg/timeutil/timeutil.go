// Package timeutil provides calendar helpers for the school timezone (Europe/Rome).
// Registers are built from civil dates, so every helper normalizes to midnight
// in SchoolTZ before comparing or formatting.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// SchoolTZ is the timezone all school records are interpreted in.
// Falls back to a fixed CET offset when the tz database is unavailable.
var SchoolTZ = loadSchoolTZ()

func loadSchoolTZ() *time.Location {
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		return time.FixedZone("CET", 1*60*60)
	}
	return loc
}

// SetLocation overrides the school timezone (used by config at startup).
func SetLocation(loc *time.Location) {
	if loc != nil {
		SchoolTZ = loc
	}
}

// Now returns the current time in the school timezone.
func Now() time.Time {
	return time.Now().In(SchoolTZ)
}

// Today returns today's date at midnight.
func Today() time.Time {
	return StartOfDay(Now())
}

// Date creates a date at midnight in the school timezone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, SchoolTZ)
}

// Clock creates a time-of-day value on the zero date, used for schedule slots.
func Clock(hour, min int) time.Time {
	return time.Date(0, 1, 1, hour, min, 0, 0, SchoolTZ)
}

// StartOfDay truncates t to midnight in the school timezone.
func StartOfDay(t time.Time) time.Time {
	local := t.In(SchoolTZ)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, SchoolTZ)
}

// DayKey returns the civil date of t as "2006-01-02".
// Used as map key wherever dates index aggregation state.
func DayKey(t time.Time) string {
	return t.In(SchoolTZ).Format("2006-01-02")
}

// IsSameDay checks if two times fall on the same civil date.
func IsSameDay(t1, t2 time.Time) bool {
	return DayKey(t1) == DayKey(t2)
}

// NextDay returns the date following t.
func NextDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// PrevDay returns the date preceding t.
func PrevDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -1)
}

// IsSunday reports whether t is a Sunday.
func IsSunday(t time.Time) bool {
	return t.In(SchoolTZ).Weekday() == time.Sunday
}

// DaysBetween returns the number of whole days from t1 to t2.
func DaysBetween(t1, t2 time.Time) int {
	d1 := StartOfDay(t1)
	d2 := StartOfDay(t2)
	days := 0
	for d := d1; d.Before(d2); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// EachDay calls fn for every date in [from, to], inclusive.
// Iteration stops at the first error returned by fn.
func EachDay(from, to time.Time, fn func(day time.Time) error) error {
	last := StartOfDay(to)
	for d := StartOfDay(from); !d.After(last); d = d.AddDate(0, 0, 1) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// Date and time format constants.
const (
	DateFormat     = "02/01/2006"
	TimeFormat     = "15:04"
	DateTimeFormat = "02/01/2006 15:04"
	ISODateFormat  = "2006-01-02"
)

// FormatDate formats a date as "dd/mm/yyyy".
func FormatDate(t time.Time) string {
	return t.In(SchoolTZ).Format(DateFormat)
}

// FormatTime formats a time as "HH:MM".
func FormatTime(t time.Time) string {
	return t.In(SchoolTZ).Format(TimeFormat)
}

// FormatDayMonth formats a date as "dd/mm".
func FormatDayMonth(t time.Time) string {
	return t.In(SchoolTZ).Format("02/01")
}

// FormatLong formats a date as "Lunedì 14 Ottobre 2024".
func FormatLong(t time.Time) string {
	local := t.In(SchoolTZ)
	return fmt.Sprintf("%s %d %s %d", WeekdayName(local), local.Day(), MonthName(local.Month()), local.Year())
}

// ParseDate parses "yyyy-mm-dd" in the school timezone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(ISODateFormat, value, SchoolTZ)
}

// ParseDayMonth parses "dd/mm" and binds it to the given year.
func ParseDayMonth(value string, year int) (time.Time, error) {
	t, err := time.ParseInLocation("02/01", value, SchoolTZ)
	if err != nil {
		return time.Time{}, err
	}
	return Date(year, int(t.Month()), t.Day()), nil
}

var (
	weekdayShort = [...]string{"Dom", "Lun", "Mar", "Mer", "Gio", "Ven", "Sab"}
	weekdayLong  = [...]string{"Domenica", "Lunedì", "Martedì", "Mercoledì", "Giovedì", "Venerdì", "Sabato"}
	monthShort   = [...]string{"GEN", "FEB", "MAR", "APR", "MAG", "GIU", "LUG", "AGO", "SET", "OTT", "NOV", "DIC"}
	monthLong    = [...]string{"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
		"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre"}
)

// WeekdayShort returns the abbreviated Italian weekday label (Lun, Mar, ...).
func WeekdayShort(t time.Time) string {
	return weekdayShort[t.In(SchoolTZ).Weekday()]
}

// WeekdayName returns the full Italian weekday name.
func WeekdayName(t time.Time) string {
	return weekdayLong[t.In(SchoolTZ).Weekday()]
}

// MonthShort returns the upper-case three letter month label (GEN, FEB, ...).
func MonthShort(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthShort[m-1]
}

// MonthName returns the full Italian month name.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthLong[m-1]
}
