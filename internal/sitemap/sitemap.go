// Package sitemap describes what to crawl: campuses, their colleges and
// departments, and the notice boards each department exposes.
package sitemap

// DefaultLinkAttr is read off the link element when a board does not name one.
const DefaultLinkAttr = "href"

// Campus owns colleges and departments directly. Either list may be empty.
type Campus struct {
	Name        string       `yaml:"campus" json:"campus"`
	Colleges    []College    `yaml:"colleges" json:"colleges,omitempty"`
	Departments []Department `yaml:"departments" json:"departments,omitempty"`
}

// College groups departments under a campus.
type College struct {
	Name        string       `yaml:"name" json:"name"`
	Departments []Department `yaml:"departments" json:"departments"`
}

// Department owns one or more notice boards. ID is unique within its scope.
type Department struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Boards []Board `yaml:"boards" json:"boards"`
}

// Board is a single notice listing and the selectors used to read it.
type Board struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	URL           string `yaml:"url" json:"url"`
	RowSelector   string `yaml:"row_selector" json:"row_selector"`
	TitleSelector string `yaml:"title_selector" json:"title_selector"`
	DateSelector  string `yaml:"date_selector" json:"date_selector"`
	// LinkSelector is optional; the title element is used when empty.
	LinkSelector string `yaml:"link_selector" json:"link_selector,omitempty"`
	AttrName     string `yaml:"attr_name" json:"attr_name"`
}

// LinkAttr returns the attribute holding the notice link.
func (b Board) LinkAttr() string {
	if b.AttrName == "" {
		return DefaultLinkAttr
	}
	return b.AttrName
}

// DepartmentRef pairs a department with the college that owns it.
// College is empty for departments attached directly to the campus.
type DepartmentRef struct {
	College    string
	Department *Department
}

// AllDepartments lists college departments first, in college order,
// followed by the campus's direct departments.
func (c *Campus) AllDepartments() []DepartmentRef {
	refs := make([]DepartmentRef, 0, len(c.Departments))
	for i := range c.Colleges {
		college := &c.Colleges[i]
		for j := range college.Departments {
			refs = append(refs, DepartmentRef{College: college.Name, Department: &college.Departments[j]})
		}
	}
	for i := range c.Departments {
		refs = append(refs, DepartmentRef{Department: &c.Departments[i]})
	}
	return refs
}

// CountDepartments counts departments across campuses, colleges included.
func CountDepartments(campuses []Campus) int {
	total := 0
	for i := range campuses {
		total += len(campuses[i].AllDepartments())
	}
	return total
}

// CountBoards counts every board in the site map.
func CountBoards(campuses []Campus) int {
	total := 0
	for i := range campuses {
		for _, ref := range campuses[i].AllDepartments() {
			total += len(ref.Department.Boards)
		}
	}
	return total
}
