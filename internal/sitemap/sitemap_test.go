package sitemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCampus() Campus {
	return Campus{
		Name: "Sinchon",
		Colleges: []College{
			{Name: "Engineering", Departments: []Department{
				{ID: "cs", Name: "Computer Science", Boards: []Board{{ID: "notice"}, {ID: "jobs"}}},
				{ID: "ee", Name: "Electrical", Boards: []Board{{ID: "notice"}}},
			}},
			{Name: "Science", Departments: []Department{
				{ID: "math", Name: "Mathematics"},
			}},
		},
		Departments: []Department{
			{ID: "library", Name: "Library", Boards: []Board{{ID: "news"}}},
		},
	}
}

func TestAllDepartmentsOrder(t *testing.T) {
	campus := testCampus()

	refs := campus.AllDepartments()
	require.Len(t, refs, 4)

	got := make([]string, 0, len(refs))
	for _, ref := range refs {
		got = append(got, ref.College+"/"+ref.Department.ID)
	}
	assert.Equal(t, []string{"Engineering/cs", "Engineering/ee", "Science/math", "/library"}, got)
}

func TestAllDepartmentsDirectOnly(t *testing.T) {
	campus := Campus{Name: "Mirae", Departments: []Department{{ID: "a"}, {ID: "b"}}}

	refs := campus.AllDepartments()
	require.Len(t, refs, 2)
	for _, ref := range refs {
		assert.Empty(t, ref.College)
	}
}

func TestCounts(t *testing.T) {
	campuses := []Campus{testCampus(), {Name: "Empty"}}

	assert.Equal(t, 4, CountDepartments(campuses))
	assert.Equal(t, 4, CountBoards(campuses))
}

func TestLinkAttrDefault(t *testing.T) {
	assert.Equal(t, "href", Board{}.LinkAttr())
	assert.Equal(t, "data-url", Board{AttrName: "data-url"}.LinkAttr())
}
