package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentSnapshot is an immutable versioned record of a generated document.
// VersionNumber is assigned by the document store scoped to (fund, type);
// rows are appended, never updated.
type DocumentSnapshot struct {
	ID                uuid.UUID         `json:"id"`
	FundID            uuid.UUID         `json:"fund_id"`
	Type              DocumentType      `json:"type"`
	VersionNumber     int               `json:"version_number"`
	TemplateVersion   string            `json:"template_version"`
	ProcessedContent  []TemplateSection `json:"processed_content"`
	GenerationContext map[string]any    `json:"generation_context"`
	GeneratedAt       time.Time         `json:"generated_at"`
	GeneratedBy       uuid.UUID         `json:"generated_by"`
}

// ContentJSON returns the processed section tree as JSONB for storage.
func (s DocumentSnapshot) ContentJSON() (json.RawMessage, error) {
	return json.Marshal(s.ProcessedContent)
}

// ContextJSON returns the generation context as JSONB for storage.
func (s DocumentSnapshot) ContextJSON() (json.RawMessage, error) {
	if s.GenerationContext == nil {
		return json.Marshal(map[string]any{})
	}
	return json.Marshal(s.GenerationContext)
}

// ContextFromJSON decodes a stored generation context.
func ContextFromJSON(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var ctx map[string]any
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// compareRoot flattens a snapshot into the plain JSON value the differ
// operates on: the sanitized generation context merged with the processed
// section tree under "sections". Conversion goes through a JSON round trip so
// the differ only ever sees maps, slices and scalars.
func (s DocumentSnapshot) compareRoot() (map[string]any, error) {
	root := map[string]any{}
	for key, value := range s.GenerationContext {
		root[key] = value
	}

	raw, err := json.Marshal(s.ProcessedContent)
	if err != nil {
		return nil, err
	}
	var sections any
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, err
	}
	if sections == nil {
		sections = []any{}
	}
	root["sections"] = sections

	sanitized, _ := SanitizeValue(root).(map[string]any)
	if sanitized == nil {
		sanitized = map[string]any{}
	}
	return sanitized, nil
}
