package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/register-archive/internal/domain/school"
)

func TestPageCount(t *testing.T) {
	tests := []struct {
		n, trailing, want int
	}{
		{0, TrailingTeacher, 1},
		{0, TrailingSupport, 1},
		{16, TrailingTeacher, 1},
		{17, TrailingTeacher, 2},
		{18, TrailingSupport, 1},
		{19, TrailingSupport, 2},
		{20, TrailingTeacher, 2},
		{21, TrailingTeacher, 2},
		{36, TrailingTeacher, 2},
		{37, TrailingTeacher, 3},
		{40, TrailingSupport, 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PageCount(tt.n, ColumnsPerPage, tt.trailing), "n=%d f=%d", tt.n, tt.trailing)
	}
}

func TestPlan_RangesReconstructSequence(t *testing.T) {
	for _, f := range []int{TrailingSupport, TrailingTeacher} {
		for n := 0; n <= 120; n++ {
			plan := NewPlan(n, ColumnsPerPage, f)
			pages := plan.Pages()

			wantPages := (n + f + ColumnsPerPage - 1) / ColumnsPerPage
			require.Equal(t, wantPages, plan.Count(), "n=%d f=%d", n, f)

			next := 0
			for i, p := range pages {
				assert.Equal(t, next, p.From, "n=%d f=%d page=%d", n, f, i)
				assert.LessOrEqual(t, p.Len(), ColumnsPerPage)
				assert.Equal(t, i == len(pages)-1, p.Summary)
				next = p.To
			}
			assert.Equal(t, n, next, "n=%d f=%d", n, f)
		}
	}
}

func TestPlan_TwentyOneDates(t *testing.T) {
	plan := PlanFor(school.ScopeAssignment, 21)
	pages := plan.Pages()

	require.Len(t, pages, 2)
	assert.Equal(t, Page{Index: 0, From: 0, To: 20, Summary: false}, pages[0])
	assert.Equal(t, Page{Index: 1, From: 20, To: 21, Summary: true}, pages[1])
	assert.True(t, pages[1].SubtotalRow())
	assert.Equal(t, 2, pages[1].HeaderRows())
}

func TestPlan_SummaryOnlyLastPage(t *testing.T) {
	plan := PlanFor(school.ScopeAssignment, 20)
	last := plan.Last()

	assert.Equal(t, 2, plan.Count())
	assert.False(t, last.HasDays())
	assert.True(t, last.Summary)
	assert.False(t, last.SubtotalRow())
	assert.Equal(t, 1, last.HeaderRows())
}

func TestPlan_NoColumns(t *testing.T) {
	plan := PlanFor(school.ScopeSupport, 0)
	require.Equal(t, 1, plan.Count())
	assert.Equal(t, Page{Index: 0, From: 0, To: 0, Summary: true}, plan.Last())
}
