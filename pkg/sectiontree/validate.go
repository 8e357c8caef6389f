// Package sectiontree validates document section trees before they are
// diffed or rendered, so malformed legacy snapshots fail predictably at the
// boundary instead of deep inside the comparison code.
package sectiontree

import (
	"fmt"
	"strings"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

// MaxDepth is the deepest nesting a section tree may carry. The depth
// classifier only distinguishes levels up to item granularity, anything
// deeper is almost certainly a corrupted snapshot.
const MaxDepth = 6

// ValidationError represents a single problem found in a section tree.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationResult represents the result of validating one tree.
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// ValidateTree walks the tree and collects every problem it finds.
func ValidateTree(sections []domain.TemplateSection) ValidationResult {
	result := ValidationResult{
		IsValid: true,
		Errors:  []ValidationError{},
	}
	walk(sections, "", 1, &result)
	return result
}

// Validate is the error-returning form used at service boundaries. It reports
// the first problem found.
func Validate(sections []domain.TemplateSection) error {
	result := ValidateTree(sections)
	if result.IsValid {
		return nil
	}
	return result.Errors[0]
}

func walk(sections []domain.TemplateSection, path string, depth int, result *ValidationResult) {
	if depth > MaxDepth {
		result.IsValid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("nesting exceeds maximum depth %d", MaxDepth),
		})
		return
	}

	seenTitles := map[string]int{}
	for i, section := range sections {
		sectionPath := joinPath(path, i)

		title := strings.TrimSpace(section.Title)
		if title == "" {
			result.IsValid = false
			result.Errors = append(result.Errors, ValidationError{
				Path:    sectionPath,
				Message: "section title is empty",
			})
		} else {
			// Titles identify siblings when sections are matched across
			// versions, so a duplicate makes the diff ambiguous.
			if first, dup := seenTitles[title]; dup {
				result.IsValid = false
				result.Errors = append(result.Errors, ValidationError{
					Path:    sectionPath,
					Message: fmt.Sprintf("duplicate sibling title %q (first at %s)", title, joinPath(path, first)),
				})
			} else {
				seenTitles[title] = i
			}
		}

		if len(section.Sub) > 0 {
			walk(section.Sub, sectionPath+".sub", depth+1, result)
		}
	}
}

func joinPath(base string, index int) string {
	if base == "" {
		return fmt.Sprintf("sections.%d", index)
	}
	return fmt.Sprintf("%s.%d", base, index)
}
