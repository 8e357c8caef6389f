package domain

import "testing"

func TestDisplayPathWellKnownPaths(t *testing.T) {
	rules := DisplayRulesFor(DocumentTypeLPA)
	if got := rules.DisplayPath("fundName"); got != "Fund name" {
		t.Errorf("unexpected label %q", got)
	}
	if got := rules.DisplayPath("gpName"); got != "GP name" {
		t.Errorf("unexpected label %q", got)
	}
	if got := rules.DisplayPath("totalCapAmount"); got != "Total cap amount" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestDisplayPathArticles(t *testing.T) {
	rules := DisplayRulesFor(DocumentTypeLPA)
	if got := rules.DisplayPath("articles.3"); got != "Article 3" {
		t.Errorf("unexpected label %q", got)
	}
	if got := rules.DisplayPath("articles.3.content"); got != "Article 3 – Content" {
		t.Errorf("unexpected label %q", got)
	}
	if got := rules.DisplayPath("articles.12.title"); got != "Article 12 – Title" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestDisplayPathMembersAreOneBased(t *testing.T) {
	rules := DisplayRulesFor(DocumentTypeLPA)
	if got := rules.DisplayPath("members.2.units"); got != "Member 3 – investment units" {
		t.Errorf("unexpected label %q", got)
	}
	if got := rules.DisplayPath("members.0.name"); got != "Member 1 – name" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestDisplayPathSections(t *testing.T) {
	rules := DisplayRulesFor(DocumentTypeLPA)
	if got := rules.DisplayPath("sections.0.title"); got != "Section 1 – Title" {
		t.Errorf("unexpected label %q", got)
	}
	if got := rules.DisplayPath("sections.2.sub.1.text"); got != "Section 3.2 – Text" {
		t.Errorf("unexpected label %q", got)
	}
	if got := rules.DisplayPath("sections.1"); got != "Section 2" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestDisplayPathFallbackNeverFails(t *testing.T) {
	rules := DisplayRulesFor(DocumentTypeLPA)
	if got := rules.DisplayPath("totally.unknown.path"); got != "totally → unknown → path" {
		t.Errorf("unexpected fallback %q", got)
	}
	if got := rules.DisplayPath("single"); got != "single" {
		t.Errorf("unexpected fallback %q", got)
	}
}

func TestDisplayPathRegistryExtension(t *testing.T) {
	custom := NewDisplayRuleSet(DisplayRule{
		Match:  func(path string) bool { return path == "special" },
		Format: func(path string) string { return "Special field" },
	})
	docType := DocumentType("side_letter")
	RegisterDisplayRules(docType, custom)

	rules := DisplayRulesFor(docType)
	if got := rules.DisplayPath("special"); got != "Special field" {
		t.Errorf("registered rules should win, got %q", got)
	}
	if got := rules.DisplayPath("other"); got != "other" {
		t.Errorf("unmatched paths should still degrade, got %q", got)
	}

	// unregistered types fall back to the defaults
	unknown := DisplayRulesFor(DocumentType("unknown_kind"))
	if got := unknown.DisplayPath("fundName"); got != "Fund name" {
		t.Errorf("default rules should apply to unknown types, got %q", got)
	}
}
