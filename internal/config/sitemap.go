package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"uring-crawler/internal/sitemap"
)

// LoadSiteMap loads the campus list from a JSON or YAML file. yaml.v3
// reads both, so the extension does not matter.
func LoadSiteMap(filePath string) ([]sitemap.Campus, error) {
	if filePath == "" {
		return nil, fmt.Errorf("site map file path is empty")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open site map file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close site map file: %v\n", closeErr)
		}
	}()

	return DecodeSiteMap(file)
}

// DecodeSiteMap decodes and validates a site map document.
func DecodeSiteMap(r io.Reader) ([]sitemap.Campus, error) {
	var campuses []sitemap.Campus
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&campuses); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("site map is empty")
		}
		return nil, fmt.Errorf("failed to parse site map: %w", err)
	}

	for i := range campuses {
		if err := validateCampus(&campuses[i]); err != nil {
			return nil, err
		}
		applyBoardDefaults(&campuses[i])
	}

	return campuses, nil
}

func applyBoardDefaults(c *sitemap.Campus) {
	for _, ref := range c.AllDepartments() {
		for j := range ref.Department.Boards {
			if ref.Department.Boards[j].AttrName == "" {
				ref.Department.Boards[j].AttrName = sitemap.DefaultLinkAttr
			}
		}
	}
}

func validateCampus(c *sitemap.Campus) error {
	if c.Name == "" {
		return fmt.Errorf("campus name is required")
	}
	for _, college := range c.Colleges {
		if college.Name == "" {
			return fmt.Errorf("campus %q: college name is required", c.Name)
		}
		if err := validateDepartments(college.Departments); err != nil {
			return fmt.Errorf("campus %q, college %q: %w", c.Name, college.Name, err)
		}
	}
	if err := validateDepartments(c.Departments); err != nil {
		return fmt.Errorf("campus %q: %w", c.Name, err)
	}
	return nil
}

// validateDepartments checks one owning scope; ids must be unique within it.
func validateDepartments(departments []sitemap.Department) error {
	seen := make(map[string]struct{}, len(departments))
	for _, d := range departments {
		if d.ID == "" {
			return fmt.Errorf("department id is required")
		}
		if d.Name == "" {
			return fmt.Errorf("department %q: name is required", d.ID)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate department id %q", d.ID)
		}
		seen[d.ID] = struct{}{}

		for _, b := range d.Boards {
			if err := validateBoard(b); err != nil {
				return fmt.Errorf("department %q: %w", d.ID, err)
			}
		}
	}
	return nil
}

func validateBoard(b sitemap.Board) error {
	if b.ID == "" {
		return fmt.Errorf("board id is required")
	}
	if b.URL == "" {
		return fmt.Errorf("board %q: url is required", b.ID)
	}
	if b.RowSelector == "" {
		return fmt.Errorf("board %q: row_selector is required", b.ID)
	}
	if b.TitleSelector == "" {
		return fmt.Errorf("board %q: title_selector is required", b.ID)
	}
	if b.DateSelector == "" {
		return fmt.Errorf("board %q: date_selector is required", b.ID)
	}
	return nil
}
