// Package register holds the pure compilation logic of a register: grid
// aggregation, score and absence formatting, topic deduplication and the
// column pagination plan. Nothing here performs I/O.
package register

import (
	"math"
	"strconv"
	"strings"
)

const epsilon = 1e-9

// ScoreMarkers are the suffixes appended to a grade for quarter and half points.
type ScoreMarkers struct {
	Plus  string // x.25
	Minus string // x.75, attached to the next integer
	Half  string // x.5
}

// DefaultScoreMarkers returns the markers used on Italian registers.
func DefaultScoreMarkers() ScoreMarkers {
	return ScoreMarkers{Plus: "+", Minus: "-", Half: "½"}
}

// Format renders a score: i = floor(score+0.25), suffixed by the marker
// matching the fractional part. Non-positive scores render empty.
func (m ScoreMarkers) Format(score float64) string {
	if score <= 0 {
		return ""
	}
	i := int(math.Floor(score + 0.25 + epsilon))
	frac := score - math.Floor(score)

	s := strconv.Itoa(i)
	switch {
	case near(frac, 0.25):
		return s + m.Plus
	case near(frac, 0.75):
		return s + m.Minus
	case near(frac, 0.5):
		return s + m.Half
	default:
		return s
	}
}

// FormatScore renders a score with the default markers.
func FormatScore(score float64) string {
	return DefaultScoreMarkers().Format(score)
}

// AbsenceMarks renders absence hours as one "A" per whole hour plus an
// "a" when a fractional remainder is left (1.5 -> "Aa", 0.5 -> "a").
func AbsenceMarks(hours float64) string {
	if hours <= 0 {
		return ""
	}
	whole := int(math.Floor(hours + epsilon))
	marks := strings.Repeat("A", whole)
	if hours-float64(whole) > epsilon {
		marks += "a"
	}
	return marks
}

// FormatHours renders hours with one decimal, a comma separator and no
// trailing ",0" (12 -> "12", 1.5 -> "1,5").
func FormatHours(hours float64) string {
	s := strconv.FormatFloat(hours, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	if s == "-0" {
		s = "0"
	}
	return strings.Replace(s, ".", ",", 1)
}

// MinutesToHours converts lesson minutes to hours.
func MinutesToHours(minutes int) float64 {
	return float64(minutes) / 60
}

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}
