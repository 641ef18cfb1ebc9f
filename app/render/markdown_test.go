package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		contains    []string
		notContains []string
	}{
		{
			name:     "heading and emphasis",
			source:   "# Hello\n\nsome *text*",
			contains: []string{`id="hello"`, "Hello</h1>", "<em>text</em>"},
		},
		{
			name:        "script stripped",
			source:      "hi <script>alert(1)</script>",
			notContains: []string{"<script>", "alert(1)</script>"},
		},
		{
			name:     "links get rel and target",
			source:   "[site](https://example.com)",
			contains: []string{`href="https://example.com"`, "noreferrer", `target="_blank"`},
		},
		{
			name:     "gfm table",
			source:   "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Markdown(tt.source)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, bad := range tt.notContains {
				assert.NotContains(t, out, bad)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello world", PlainText("  <b>Hello</b> <i>world</i> "))
	assert.Equal(t, "Tom & Jerry", PlainText("Tom & Jerry"))
	assert.Equal(t, "", PlainText("<script></script>"))
}
