package utils

import (
	"strings"
)

// RenderTemplate substitutes {{key}} placeholders in a campaign template
// with the provided values. Placeholders without a value are left verbatim
// so operators can spot typos in previews.
func RenderTemplate(template string, values map[string]string) string {
	out := template
	for key, value := range values {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}

// TemplatePlaceholders returns the placeholder keys referenced by a template,
// in order of first appearance.
func TemplatePlaceholders(template string) []string {
	var keys []string
	seen := map[string]bool{}
	rest := template
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			break
		}
		key := rest[start+2 : start+end]
		if key != "" && !strings.Contains(key, "{{") && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		rest = rest[start+end+2:]
	}
	return keys
}
