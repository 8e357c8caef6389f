package domain

// sanitizeDenylist holds the volatile bookkeeping keys stripped from snapshots
// before comparison so that metadata churn never shows up as a content change.
var sanitizeDenylist = map[string]struct{}{
	"processedAt": {},
	"generatedAt": {},
	"timestamp":   {},
	"created_at":  {},
	"updated_at":  {},
}

// SanitizeValue returns a deep copy of a JSON-compatible value with every
// denylisted key removed at every nesting level. Scalars pass through
// unchanged and the input is never mutated.
func SanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			if _, skip := sanitizeDenylist[key]; skip {
				continue
			}
			out[key] = SanitizeValue(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = SanitizeValue(child)
		}
		return out
	default:
		return value
	}
}
