package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"BOLT, FLANGE", "Bolt, Flange"},
		{"  gasket   cylinder head ", "Gasket Cylinder Head"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, TitleCase(tt.input))
		})
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain passthrough", "BOLT  FLANGE", "BOLT FLANGE"},
		{"paragraphs", "<p>Seal</p><p>Oil</p>", "Seal Oil"},
		{"entities", "Nut &amp; Washer", "Nut & Washer"},
		{"inline tags", "<b>GASKET</b> <i>kit</i>", "GASKET kit"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PlainText(tt.input))
		})
	}
}

func TestMarkdown(t *testing.T) {
	assert.Equal(t, "no markup", Markdown("no markup"))
	assert.Equal(t, "**GASKET**", Markdown("<b>GASKET</b>"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "pelek belakang", Fold("  Pélek BELAKANG "))
}
