package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ChangeSeverity grades a structural template change by the depth of the
// changed node in the legal-document hierarchy.
type ChangeSeverity string

const (
	SeverityMajor ChangeSeverity = "major"
	SeverityMinor ChangeSeverity = "minor"
	SeverityPatch ChangeSeverity = "patch"
)

// VersionBump names the semantic version component to increment.
type VersionBump string

const (
	BumpMajor VersionBump = "major"
	BumpMinor VersionBump = "minor"
	BumpPatch VersionBump = "patch"
)

// BumpPolicy maps change severity to the version bump it warrants. Severity
// grading and bump policy are separate concerns: the classifier reports how
// deep a change sits, the policy decides what that means for consumers of
// the version number.
type BumpPolicy map[ChangeSeverity]VersionBump

// DefaultBumpPolicy maps each severity to the bump of the same name.
func DefaultBumpPolicy() BumpPolicy {
	return BumpPolicy{
		SeverityMajor: BumpMajor,
		SeverityMinor: BumpMinor,
		SeverityPatch: BumpPatch,
	}
}

// TemplateChange is one structural difference found between two section
// trees, tagged with its depth-derived severity.
type TemplateChange struct {
	Type        ChangeSeverity `json:"type"`
	Path        string         `json:"path"`
	Description string         `json:"description"`
	Depth       int            `json:"depth"`
}

// depthLabels is the fixed ordered label set for the document hierarchy.
var depthLabels = []string{"Chapter", "Article", "Clause", "Item", "Sub-item"}

// GetSectionDepth counts the numeric segments of a dotted path; the depth of
// changes emitted at that path is one deeper.
func GetSectionDepth(path string) int {
	if path == "" {
		return 0
	}
	depth := 0
	for _, segment := range strings.Split(path, ".") {
		if _, err := strconv.Atoi(segment); err == nil {
			depth++
		}
	}
	return depth
}

// GetDepthLabel returns the hierarchy label for a depth level, clamping
// anything deeper than the label set to the last label.
func GetDepthLabel(depth int) string {
	if depth < 1 {
		depth = 1
	}
	if depth > len(depthLabels) {
		depth = len(depthLabels)
	}
	return depthLabels[depth-1]
}

// SeverityForDepth maps structural depth to severity: chapter/article level
// (depth 1-2) is major, clause level (depth 3) is minor, item level and
// deeper is patch.
func SeverityForDepth(depth int) ChangeSeverity {
	switch {
	case depth <= 2:
		return SeverityMajor
	case depth == 3:
		return SeverityMinor
	default:
		return SeverityPatch
	}
}

// CompareSections walks two section arrays and appends one TemplateChange
// per structural difference. Depth is derived from the accumulated path, so
// title and text mismatches are graded at the section's own depth, not one
// deeper. Missing sub arrays are treated as empty; older snapshots that lack
// newer fields never cause a failure.
func CompareSections(original, modified []TemplateSection, path string, changes *[]TemplateChange) {
	depth := GetSectionDepth(path) + 1
	severity := SeverityForDepth(depth)

	if len(original) != len(modified) {
		*changes = append(*changes, TemplateChange{
			Type:        severity,
			Path:        joinSectionPath(path, "sections"),
			Description: fmt.Sprintf("section count changed from %d to %d", len(original), len(modified)),
			Depth:       depth,
		})
	}

	count := len(original)
	if len(modified) > count {
		count = len(modified)
	}

	for i := 0; i < count; i++ {
		sectionPath := joinSectionPath(path, "sections."+strconv.Itoa(i))
		switch {
		case i >= len(original):
			*changes = append(*changes, TemplateChange{
				Type:        severity,
				Path:        sectionPath,
				Description: fmt.Sprintf("section %q added", modified[i].Title),
				Depth:       depth,
			})
		case i >= len(modified):
			*changes = append(*changes, TemplateChange{
				Type:        severity,
				Path:        sectionPath,
				Description: fmt.Sprintf("section %q removed", original[i].Title),
				Depth:       depth,
			})
		default:
			if original[i].Title != modified[i].Title {
				*changes = append(*changes, TemplateChange{
					Type:        severity,
					Path:        sectionPath + ".title",
					Description: fmt.Sprintf("title changed from %q to %q", original[i].Title, modified[i].Title),
					Depth:       depth,
				})
			}
			if original[i].Text != modified[i].Text {
				*changes = append(*changes, TemplateChange{
					Type:        severity,
					Path:        sectionPath + ".text",
					Description: fmt.Sprintf("text of %q changed", modified[i].Title),
					Depth:       depth,
				})
			}
			if len(original[i].Sub) > 0 || len(modified[i].Sub) > 0 {
				CompareSections(original[i].Sub, modified[i].Sub, sectionPath+".sub", changes)
			}
		}
	}
}

// CompareTemplateContent classifies every structural difference between two
// full content trees.
func CompareTemplateContent(original, modified []TemplateSection) []TemplateChange {
	changes := []TemplateChange{}
	CompareSections(original, modified, "", &changes)
	return changes
}

func joinSectionPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

// NextVersion computes the successor of a "major.minor.patch" version from a
// change set under the given bump policy. Priority is strictly
// major > minor > patch: one major-level change forces a major bump no
// matter how many smaller changes coexist. An empty change set returns the
// input unchanged.
func NextVersion(current string, changes []TemplateChange, policy BumpPolicy) (string, error) {
	if len(changes) == 0 {
		return current, nil
	}
	if policy == nil {
		policy = DefaultBumpPolicy()
	}

	major, minor, patch, err := parseVersion(current)
	if err != nil {
		return "", err
	}

	bump := BumpPatch
	for _, change := range changes {
		switch policy[change.Type] {
		case BumpMajor:
			bump = BumpMajor
		case BumpMinor:
			if bump != BumpMajor {
				bump = BumpMinor
			}
		}
	}

	switch bump {
	case BumpMajor:
		return fmt.Sprintf("%d.0.0", major+1), nil
	case BumpMinor:
		return fmt.Sprintf("%d.%d.0", major, minor+1), nil
	default:
		return fmt.Sprintf("%d.%d.%d", major, minor, patch+1), nil
	}
}

func parseVersion(version string) (major, minor, patch int, err error) {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid version format: %s", version)
	}
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid major version: %w", err)
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid minor version: %w", err)
	}
	if patch, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid patch version: %w", err)
	}
	return major, minor, patch, nil
}

// ChangeSummary joins the non-zero severity counts into a human summary,
// e.g. "major changes: 2, minor changes: 1".
func ChangeSummary(changes []TemplateChange) string {
	counts := map[ChangeSeverity]int{}
	for _, change := range changes {
		counts[change.Type]++
	}

	parts := []string{}
	for _, severity := range []ChangeSeverity{SeverityMajor, SeverityMinor, SeverityPatch} {
		if counts[severity] > 0 {
			parts = append(parts, fmt.Sprintf("%s changes: %d", severity, counts[severity]))
		}
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

// FormatSectionPath converts a dotted numeric path into a hierarchical label
// built from the fixed depth label set, e.g. "sections.2.sub.0" becomes
// "Article 3 > Clause 1". Non-numeric trailing segments (title, text) are
// ignored; they address a field, not a level.
func FormatSectionPath(path string) string {
	depth := 0
	labels := []string{}
	for _, segment := range strings.Split(path, ".") {
		index, err := strconv.Atoi(segment)
		if err != nil {
			continue
		}
		depth++
		if index < 0 {
			continue
		}
		labels = append(labels, fmt.Sprintf("%s %d", GetDepthLabel(depth), index+1))
	}
	return strings.Join(labels, " > ")
}

// GetSectionFullLabel resolves a dotted numeric path against the section tree
// it addresses, producing the hierarchical label with section titles. A
// negative index addresses an unordered section (an appendix) matched by its
// Index field and rendered by title alone, without a numeric prefix.
func GetSectionFullLabel(sections []TemplateSection, path string) string {
	depth := 0
	labels := []string{}
	current := sections

	for _, segment := range strings.Split(path, ".") {
		index, err := strconv.Atoi(segment)
		if err != nil {
			continue
		}
		depth++

		if index < 0 {
			if section, ok := sectionByIndex(current, index); ok {
				labels = append(labels, section.Title)
				current = section.Sub
				continue
			}
			labels = append(labels, GetDepthLabel(depth))
			current = nil
			continue
		}

		label := fmt.Sprintf("%s %d", GetDepthLabel(depth), index+1)
		if index < len(current) {
			if title := current[index].Title; title != "" {
				label = fmt.Sprintf("%s (%s)", label, title)
			}
			current = current[index].Sub
		} else {
			current = nil
		}
		labels = append(labels, label)
	}

	return strings.Join(labels, " > ")
}

func sectionByIndex(sections []TemplateSection, index int) (TemplateSection, bool) {
	for _, section := range sections {
		if section.Index == index {
			return section, true
		}
	}
	return TemplateSection{}, false
}
