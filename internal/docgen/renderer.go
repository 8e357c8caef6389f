package docgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// RenderSections substitutes {{var}} placeholders through a section tree.
// A placeholder without a matching context variable fails the render, so a
// half-substituted document is never persisted.
func RenderSections(sections []domain.TemplateSection, vars map[string]any) ([]domain.TemplateSection, error) {
	out := make([]domain.TemplateSection, len(sections))
	for i, section := range sections {
		title, err := renderString(section.Title, vars)
		if err != nil {
			return nil, fmt.Errorf("failed to render section %d title: %w", section.Index, err)
		}
		text, err := renderString(section.Text, vars)
		if err != nil {
			return nil, fmt.Errorf("failed to render section %d text: %w", section.Index, err)
		}
		sub, err := RenderSections(section.Sub, vars)
		if err != nil {
			return nil, err
		}
		section.Title = title
		section.Text = text
		section.Sub = sub
		out[i] = section
	}
	if sections == nil {
		return nil, nil
	}
	return out, nil
}

// RenderText substitutes placeholders in a single string, with the same
// unknown-variable strictness as section rendering.
func RenderText(input string, vars map[string]any) (string, error) {
	return renderString(input, vars)
}

func renderString(input string, vars map[string]any) (string, error) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}
	var missing []string
	rendered := placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return formatVariable(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unknown template variable %q", missing[0])
	}
	return rendered, nil
}

func formatVariable(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		if typed {
			return "yes"
		}
		return "no"
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}
