package domain

import (
	"strings"
	"testing"
)

func TestCompareSectionsAddedTopLevelSectionIsMajor(t *testing.T) {
	original := []TemplateSection{{Title: "A", Text: "x"}}
	modified := []TemplateSection{{Title: "A", Text: "x"}, {Title: "B", Text: "y"}}

	changes := CompareTemplateContent(original, modified)

	added := []TemplateChange{}
	for _, change := range changes {
		if strings.HasSuffix(change.Path, "sections.1") {
			added = append(added, change)
		}
	}
	if len(added) != 1 {
		t.Fatalf("expected one added-section change, got %+v", changes)
	}
	if added[0].Type != SeverityMajor || added[0].Depth != 1 {
		t.Errorf("top-level addition must be major at depth 1, got %+v", added[0])
	}

	next, err := NextVersion("1.0.0", changes, DefaultBumpPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != "2.0.0" {
		t.Errorf("expected 2.0.0, got %s", next)
	}
}

func TestCompareSectionsTextChangeAtTopLevelIsMajor(t *testing.T) {
	original := []TemplateSection{{Title: "A", Text: "x"}}
	modified := []TemplateSection{{Title: "A", Text: "y"}}

	changes := CompareTemplateContent(original, modified)
	if len(changes) != 1 {
		t.Fatalf("expected one change, got %+v", changes)
	}
	// a field mismatch is graded at the section's own depth, not one deeper
	if changes[0].Type != SeverityMajor || changes[0].Depth != 1 {
		t.Errorf("top-level text change must be major at depth 1, got %+v", changes[0])
	}
	if changes[0].Path != "sections.0.text" {
		t.Errorf("unexpected path %q", changes[0].Path)
	}
}

func TestCompareSectionsNestedTextChangeIsMinor(t *testing.T) {
	original := []TemplateSection{{
		Title: "Chapter",
		Sub: []TemplateSection{{
			Title: "Article",
			Sub: []TemplateSection{{
				Title: "Clause",
				Text:  "x",
			}},
		}},
	}}
	modified := []TemplateSection{{
		Title: "Chapter",
		Sub: []TemplateSection{{
			Title: "Article",
			Sub: []TemplateSection{{
				Title: "Clause",
				Text:  "y",
			}},
		}},
	}}

	changes := CompareTemplateContent(original, modified)
	if len(changes) != 1 {
		t.Fatalf("expected one change, got %+v", changes)
	}
	if changes[0].Depth != 3 || changes[0].Type != SeverityMinor {
		t.Errorf("clause-level change must be minor at depth 3, got %+v", changes[0])
	}

	next, err := NextVersion("1.2.3", changes, DefaultBumpPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != "1.3.0" {
		t.Errorf("expected 1.3.0, got %s", next)
	}
}

func TestSeverityForDepth(t *testing.T) {
	cases := []struct {
		depth    int
		expected ChangeSeverity
	}{
		{1, SeverityMajor},
		{2, SeverityMajor},
		{3, SeverityMinor},
		{4, SeverityPatch},
		{7, SeverityPatch},
	}
	for _, c := range cases {
		if got := SeverityForDepth(c.depth); got != c.expected {
			t.Errorf("depth %d: expected %s, got %s", c.depth, c.expected, got)
		}
	}
}

func TestNextVersionEmptyChangesReturnsInput(t *testing.T) {
	next, err := NextVersion("3.14.15", nil, DefaultBumpPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != "3.14.15" {
		t.Errorf("empty change set must not bump, got %s", next)
	}
}

func TestNextVersionMajorPriority(t *testing.T) {
	changes := []TemplateChange{
		{Type: SeverityPatch, Depth: 5},
		{Type: SeverityMinor, Depth: 3},
		{Type: SeverityMajor, Depth: 1},
		{Type: SeverityMinor, Depth: 3},
	}
	next, err := NextVersion("2.7.9", changes, DefaultBumpPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != "3.0.0" {
		t.Errorf("a single major change must force a major bump, got %s", next)
	}
}

func TestNextVersionMonotonicGrowth(t *testing.T) {
	starts := []string{"0.0.0", "1.2.3", "10.0.7"}
	sets := [][]TemplateChange{
		{{Type: SeverityMajor}},
		{{Type: SeverityMinor}},
		{{Type: SeverityPatch}},
		{{Type: SeverityPatch}, {Type: SeverityMinor}},
	}
	for _, start := range starts {
		var sMaj, sMin, sPat int
		if _, err := parseVersionInto(start, &sMaj, &sMin, &sPat); err != nil {
			t.Fatalf("bad test fixture %q: %v", start, err)
		}
		for _, changes := range sets {
			next, err := NextVersion(start, changes, DefaultBumpPolicy())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var nMaj, nMin, nPat int
			if _, err := parseVersionInto(next, &nMaj, &nMin, &nPat); err != nil {
				t.Fatalf("result %q is not a version: %v", next, err)
			}
			if !versionTupleLess(sMaj, sMin, sPat, nMaj, nMin, nPat) {
				t.Errorf("%s with %d changes did not grow: got %s", start, len(changes), next)
			}
		}
	}
}

func parseVersionInto(version string, major, minor, patch *int) (bool, error) {
	m, n, p, err := parseVersion(version)
	if err != nil {
		return false, err
	}
	*major, *minor, *patch = m, n, p
	return true, nil
}

func versionTupleLess(aMaj, aMin, aPat, bMaj, bMin, bPat int) bool {
	if aMaj != bMaj {
		return aMaj < bMaj
	}
	if aMin != bMin {
		return aMin < bMin
	}
	return aPat < bPat
}

func TestNextVersionMalformedInput(t *testing.T) {
	if _, err := NextVersion("1.0", []TemplateChange{{Type: SeverityPatch}}, nil); err == nil {
		t.Errorf("expected an error for a malformed version")
	}
}

func TestNextVersionCustomBumpPolicy(t *testing.T) {
	// a policy that treats clause-level changes as patch-worthy only
	policy := BumpPolicy{
		SeverityMajor: BumpMajor,
		SeverityMinor: BumpPatch,
		SeverityPatch: BumpPatch,
	}
	changes := []TemplateChange{{Type: SeverityMinor}}
	next, err := NextVersion("1.2.3", changes, policy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != "1.2.4" {
		t.Errorf("custom policy should map minor severity to a patch bump, got %s", next)
	}
}

func TestChangeSummary(t *testing.T) {
	changes := []TemplateChange{
		{Type: SeverityMajor},
		{Type: SeverityMajor},
		{Type: SeverityMinor},
	}
	summary := ChangeSummary(changes)
	if summary != "major changes: 2, minor changes: 1" {
		t.Errorf("unexpected summary %q", summary)
	}
	if got := ChangeSummary(nil); got != "no changes" {
		t.Errorf("empty summary should read \"no changes\", got %q", got)
	}
}

func TestCompareSectionsMissingSubTreatedAsEmpty(t *testing.T) {
	original := []TemplateSection{{Title: "A", Sub: []TemplateSection{{Title: "A.1", Text: "x"}}}}
	modified := []TemplateSection{{Title: "A"}}

	changes := CompareTemplateContent(original, modified)
	if len(changes) == 0 {
		t.Fatalf("expected changes for a dropped sub array")
	}
	for _, change := range changes {
		if change.Depth != 2 {
			t.Errorf("sub-level change should sit at depth 2, got %+v", change)
		}
	}
}

func TestFormatSectionPath(t *testing.T) {
	if got := FormatSectionPath("sections.2.sub.0"); got != "Chapter 3 > Article 1" {
		t.Errorf("unexpected label %q", got)
	}
	if got := FormatSectionPath("sections.0.sub.1.sub.2.text"); got != "Chapter 1 > Article 2 > Clause 3" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestGetSectionFullLabel(t *testing.T) {
	sections := []TemplateSection{
		{Title: "General Provisions", Sub: []TemplateSection{
			{Title: "Purpose"},
			{Title: "Definitions"},
		}},
		{Index: -1, Title: "Appendix: Member Register"},
	}

	if got := GetSectionFullLabel(sections, "sections.0.sub.1"); got != "Chapter 1 (General Provisions) > Article 2 (Definitions)" {
		t.Errorf("unexpected label %q", got)
	}
	// negative index renders the unordered section by title alone
	if got := GetSectionFullLabel(sections, "sections.-1"); got != "Appendix: Member Register" {
		t.Errorf("unexpected appendix label %q", got)
	}
}

func TestGetDepthLabelClamps(t *testing.T) {
	if got := GetDepthLabel(0); got != "Chapter" {
		t.Errorf("depth below 1 should clamp to the first label, got %q", got)
	}
	if got := GetDepthLabel(9); got != "Sub-item" {
		t.Errorf("depth beyond the label set should clamp to the last label, got %q", got)
	}
}
