package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// DisplayRule pairs a path matcher with a formatter. Rules are tried in
// registration order; the first match wins.
type DisplayRule struct {
	Match  func(path string) bool
	Format func(path string) string
}

// DisplayRuleSet resolves structural paths to human-readable labels for one
// document type. Resolution never fails: any path no rule covers degrades to
// the raw path with a visual separator.
type DisplayRuleSet struct {
	rules []DisplayRule
}

// NewDisplayRuleSet builds a rule set with the given rules in priority order.
func NewDisplayRuleSet(rules ...DisplayRule) DisplayRuleSet {
	return DisplayRuleSet{rules: rules}
}

// DisplayPath translates a dot-delimited structural path to a label.
func (s DisplayRuleSet) DisplayPath(path string) string {
	for _, rule := range s.rules {
		if rule.Match(path) {
			return rule.Format(path)
		}
	}
	return fallbackDisplayPath(path)
}

func fallbackDisplayPath(path string) string {
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		segments[i] = strings.TrimPrefix(segment, "_")
	}
	return strings.Join(segments, " → ")
}

var displayRegistry = map[DocumentType]DisplayRuleSet{}

// RegisterDisplayRules installs the rule set for a document type. New
// document types extend the mapping here instead of modifying shared rules.
func RegisterDisplayRules(docType DocumentType, rules DisplayRuleSet) {
	displayRegistry[docType] = rules
}

// DisplayRulesFor returns the registered rule set for a document type,
// falling back to the default rules.
func DisplayRulesFor(docType DocumentType) DisplayRuleSet {
	if rules, ok := displayRegistry[docType]; ok {
		return rules
	}
	return defaultDisplayRules
}

// wellKnownPaths maps fixed generation-context paths to labels.
var wellKnownPaths = map[string]string{
	"fundName":       "Fund name",
	"gpName":         "GP name",
	"totalCapAmount": "Total cap amount",
	"parValue":       "Par value per unit",
	"fundTerm":       "Fund term",
	"formationDate":  "Formation date",
	"memberCount":    "Member count",
}

var articleFieldLabels = map[string]string{
	"title":   "Title",
	"content": "Content",
	"number":  "Number",
	"text":    "Text",
}

var memberFieldLabels = map[string]string{
	"name":    "name",
	"email":   "email",
	"phone":   "phone",
	"address": "address",
	"units":   "investment units",
	"amount":  "investment amount",
}

var sectionFieldLabels = map[string]string{
	"title": "Title",
	"text":  "Text",
	"index": "Number",
	"type":  "Type",
}

var (
	// Index segments may carry the "_" removal marker from the differ.
	articlePathPattern = regexp.MustCompile(`^articles\._?(\d+)(?:\.(.+))?$`)
	memberPathPattern  = regexp.MustCompile(`^members\._?(\d+)\.([A-Za-z_]+)$`)
	sectionPathPattern = regexp.MustCompile(`^sections\._?(\d+)((?:\.sub\._?\d+)*)(?:\.([A-Za-z_]+))?$`)
)

func regexpRule(pattern *regexp.Regexp, format func(m []string) string) DisplayRule {
	return DisplayRule{
		Match: func(path string) bool { return pattern.MatchString(path) },
		Format: func(path string) string {
			return format(pattern.FindStringSubmatch(path))
		},
	}
}

func formatArticlePath(m []string) string {
	label := "Article " + m[1]
	if m[2] == "" {
		return label
	}
	if field, ok := articleFieldLabels[m[2]]; ok {
		return label + " – " + field
	}
	return label + " – " + m[2]
}

func formatMemberPath(m []string) string {
	index, _ := strconv.Atoi(m[1])
	label := "Member " + strconv.Itoa(index+1)
	if field, ok := memberFieldLabels[m[2]]; ok {
		return label + " – " + field
	}
	return label + " – " + m[2]
}

func formatSectionPath(m []string) string {
	index, _ := strconv.Atoi(m[1])
	numbers := []string{strconv.Itoa(index + 1)}
	for _, segment := range strings.Split(m[2], ".") {
		if segment == "" || segment == "sub" {
			continue
		}
		nested, err := strconv.Atoi(strings.TrimPrefix(segment, "_"))
		if err != nil {
			continue
		}
		numbers = append(numbers, strconv.Itoa(nested+1))
	}
	label := "Section " + strings.Join(numbers, ".")
	if m[3] == "" {
		return label
	}
	if field, ok := sectionFieldLabels[m[3]]; ok {
		return label + " – " + field
	}
	return label + " – " + m[3]
}

var defaultDisplayRules = NewDisplayRuleSet(
	DisplayRule{
		Match: func(path string) bool {
			_, ok := wellKnownPaths[path]
			return ok
		},
		Format: func(path string) string { return wellKnownPaths[path] },
	},
	regexpRule(articlePathPattern, formatArticlePath),
	regexpRule(memberPathPattern, formatMemberPath),
	regexpRule(sectionPathPattern, formatSectionPath),
)

func init() {
	RegisterDisplayRules(DocumentTypeLPA, defaultDisplayRules)
	RegisterDisplayRules(DocumentTypeConsentForm, defaultDisplayRules)
	RegisterDisplayRules(DocumentTypeMemberList, defaultDisplayRules)
}
