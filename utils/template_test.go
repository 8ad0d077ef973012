package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	template := "Hi {{customer_name}}, {{offer_amount}} off at {{salon_name}}!"
	out := RenderTemplate(template, map[string]string{
		"customer_name": "Ana",
		"offer_amount":  "20%",
		"salon_name":    "Glow",
	})
	assert.Equal(t, "Hi Ana, 20% off at Glow!", out)
}

func TestRenderTemplateUnknownPlaceholderLeftVerbatim(t *testing.T) {
	out := RenderTemplate("Hello {{customer_name}} {{unused}}", map[string]string{
		"customer_name": "Ana",
	})
	assert.Equal(t, "Hello Ana {{unused}}", out)
}

func TestRenderTemplateNoPlaceholders(t *testing.T) {
	out := RenderTemplate("plain text", map[string]string{"customer_name": "Ana"})
	assert.Equal(t, "plain text", out)
}

func TestRenderTemplateEmptyValue(t *testing.T) {
	out := RenderTemplate("Hi {{customer_name}}!", map[string]string{"customer_name": ""})
	assert.Equal(t, "Hi !", out)
}

func TestTemplatePlaceholders(t *testing.T) {
	keys := TemplatePlaceholders("Hi {{customer_name}}, visit {{salon_name}} ({{customer_name}})")
	assert.Equal(t, []string{"customer_name", "salon_name"}, keys)

	assert.Empty(t, TemplatePlaceholders("no placeholders"))
	assert.Empty(t, TemplatePlaceholders("broken {{tail"))
}
