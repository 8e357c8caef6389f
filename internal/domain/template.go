package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentType discriminates the kinds of documents the portal generates.
type DocumentType string

const (
	DocumentTypeLPA         DocumentType = "lpa"
	DocumentTypeConsentForm DocumentType = "lpa_consent_form"
	DocumentTypeMemberList  DocumentType = "member_list"
)

// TemplateSection is the recursive unit of a legal document tree. Sub defines
// the nesting that determines diff depth: depth 1-2 is chapter/article level,
// depth 3 is clause level, depth 4 and deeper is item level.
type TemplateSection struct {
	Index int               `json:"index"`
	Title string            `json:"title"`
	Text  string            `json:"text,omitempty"`
	Sub   []TemplateSection `json:"sub,omitempty"`
	Type  string            `json:"type,omitempty"`
}

// DocumentTemplate is a versioned template for one document type. Saving new
// content creates a new row chained through PreviousVersionID; the previous
// version is deactivated, never rewritten.
type DocumentTemplate struct {
	ID                uuid.UUID         `json:"id"`
	Type              DocumentType      `json:"type"`
	Name              string            `json:"name"`
	Version           string            `json:"version"` // semantic "major.minor.patch"
	PreviousVersionID *uuid.UUID        `json:"previous_version_id,omitempty"`
	FundID            *uuid.UUID        `json:"fund_id,omitempty"` // fund-specific override, nil for global
	Active            bool              `json:"active"`
	Content           []TemplateSection `json:"content"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// NewDocumentTemplate creates the first version of a global template.
func NewDocumentTemplate(docType DocumentType, name string, content []TemplateSection) DocumentTemplate {
	now := time.Now()
	return DocumentTemplate{
		ID:        uuid.New(),
		Type:      docType,
		Name:      name,
		Version:   "1.0.0",
		Active:    true,
		Content:   copySections(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewVersionFromTemplate clones a template as its successor version.
func NewVersionFromTemplate(previous DocumentTemplate, content []TemplateSection, nextVersion string) DocumentTemplate {
	now := time.Now()
	prevID := previous.ID
	return DocumentTemplate{
		ID:                uuid.New(),
		Type:              previous.Type,
		Name:              previous.Name,
		Version:           nextVersion,
		PreviousVersionID: &prevID,
		FundID:            previous.FundID,
		Active:            true,
		Content:           copySections(content),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ContentJSON returns the section tree as JSONB for storage.
func (t DocumentTemplate) ContentJSON() (json.RawMessage, error) {
	return json.Marshal(t.Content)
}

// SectionsFromJSON decodes a stored section tree.
func SectionsFromJSON(raw json.RawMessage) ([]TemplateSection, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var sections []TemplateSection
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func copySections(sections []TemplateSection) []TemplateSection {
	if sections == nil {
		return nil
	}
	out := make([]TemplateSection, len(sections))
	for i, s := range sections {
		s.Sub = copySections(s.Sub)
		out[i] = s
	}
	return out
}
