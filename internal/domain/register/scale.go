package register

import (
	"strconv"

	"github.com/classbook/register-archive/internal/domain/school"
)

// GradeScale maps proposal values to the labels printed on the register.
type GradeScale struct {
	Min    int
	Labels []string
}

// Label returns the label of a value, or the number itself if it is off the scale.
func (s GradeScale) Label(value int) string {
	i := value - s.Min
	if i < 0 || i >= len(s.Labels) {
		return strconv.Itoa(value)
	}
	return s.Labels[i]
}

// Scales holds one grade scale per subject kind.
type Scales map[school.SubjectKind]GradeScale

// For returns the scale of a subject kind, falling back to the ordinary one.
func (s Scales) For(kind school.SubjectKind) GradeScale {
	if scale, ok := s[kind]; ok {
		return scale
	}
	return s[school.SubjectOrdinary]
}

// DefaultScales returns the final-grade scales: numeric 0..10, religion
// judgements 20..27 and civics 2..10, where the lowest value is "NC".
func DefaultScales() Scales {
	return Scales{
		school.SubjectOrdinary: {Min: 0, Labels: []string{"NC", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}},
		school.SubjectReligion: {Min: 20, Labels: []string{"NC", "Insufficiente", "Mediocre", "Sufficiente",
			"Discreto", "Buono", "Distinto", "Ottimo"}},
		school.SubjectCivics: {Min: 2, Labels: []string{"NC", "3", "4", "5", "6", "7", "8", "9", "10"}},
	}
}
