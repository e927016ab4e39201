package school

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classbook/register-archive/pkg/timeutil"
)

func TestClass_Labels(t *testing.T) {
	c := Class{ID: 1, Year: 3, Section: "A", Course: "Liceo Scientifico", Site: Site{ShortName: "Centrale"}}
	assert.Equal(t, "3A", c.String())
	assert.Equal(t, "Liceo Scientifico - Centrale", c.CourseLabel())

	c.Group = "LAT"
	assert.Equal(t, "3A-LAT", c.String())
	assert.Equal(t, "3A", c.Base())
}

func TestStudent_Label(t *testing.T) {
	s := Student{LastName: "Rossi", FirstName: "Mario", BirthDate: timeutil.Date(2008, 3, 5)}
	assert.Equal(t, "Rossi Mario (05/03/2008)", s.Label())
}

func TestAssignment_Admits(t *testing.T) {
	religion := Assignment{Subject: Subject{Kind: SubjectReligion}, Type: AssignmentNormal}
	alternative := Assignment{Subject: Subject{Kind: SubjectReligion}, Type: AssignmentAlternative}
	maths := Assignment{Subject: Subject{Kind: SubjectOrdinary}}

	attends := Student{Religion: ReligionAttends}
	alt := Student{Religion: ReligionAlternative}
	none := Student{Religion: ReligionNone}

	assert.True(t, religion.Admits(attends))
	assert.False(t, religion.Admits(alt))
	assert.False(t, religion.Admits(none))
	assert.True(t, alternative.Admits(alt))
	assert.False(t, alternative.Admits(attends))
	assert.True(t, maths.Admits(none))
}

func TestAssignment_IsWithdrawn(t *testing.T) {
	a := Assignment{Class: Class{ID: 10}}

	assert.False(t, a.IsWithdrawn(Student{ClassID: 10}, nil))
	assert.True(t, a.IsWithdrawn(Student{ClassID: 10, Abroad: true}, nil))
	assert.True(t, a.IsWithdrawn(Student{ClassID: 0}, nil))
	assert.True(t, a.IsWithdrawn(Student{ClassID: 11}, nil))

	// moved into one of the groups of the whole class
	assert.False(t, a.IsWithdrawn(Student{ClassID: 11}, []int64{11, 12}))
	assert.True(t, a.IsWithdrawn(Student{ClassID: 13}, []int64{11, 12}))

	grouped := Assignment{Class: Class{ID: 11, Group: "LAT"}}
	assert.True(t, grouped.IsWithdrawn(Student{ClassID: 12}, []int64{11, 12}))
}

func TestScope_Key(t *testing.T) {
	student := &Student{ID: 7}
	support := Assignment{ID: 3, Subject: Subject{Kind: SubjectSupport}, Student: student}
	ordinary := Assignment{ID: 4, Subject: Subject{Kind: SubjectOrdinary}}

	assert.Equal(t, ScopeSupport, ForAssignment(support).Kind)
	assert.Equal(t, "support:3:7", ForAssignment(support).Key())
	assert.Equal(t, "assignment:4", ForAssignment(ordinary).Key())

	day := ForClassDay(Class{ID: 9}, timeutil.Date(2024, 10, 14))
	assert.Equal(t, "class:9:2024-10-14", day.Key())
	assert.Equal(t, "class-day", day.Kind.String())
}

func TestGradeType_Label(t *testing.T) {
	assert.Equal(t, "Scritto", GradeWritten.Label())
	assert.Equal(t, "Orale", GradeOral.Label())
	assert.Equal(t, "Pratico", GradePractical.Label())
}
