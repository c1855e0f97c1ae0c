package normalize

import (
	"encoding/json"
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name: "paragraph leaves in order",
			raw: `[
				{"type":"paragraph","children":[{"type":"text","text":"Hello "},{"type":"text","text":"world","bold":true}]},
				{"type":"paragraph","children":[{"type":"link","url":"/x","children":[{"type":"text","text":"a link"}]}]}
			]`,
			expected: "Hello world\na link",
		},
		{
			name: "non-paragraph blocks dropped",
			raw: `[
				{"type":"heading","level":2,"children":[{"type":"text","text":"Title"}]},
				{"type":"paragraph","children":[{"type":"text","text":"Body"}]},
				{"type":"list","format":"unordered","children":[{"type":"list-item","children":[{"type":"text","text":"item"}]}]},
				{"type":"quote","children":[{"type":"text","text":"quoted"}]}
			]`,
			expected: "Body",
		},
		{
			name:     "empty paragraph kept as blank line",
			raw:      `[{"type":"paragraph","children":[{"type":"text","text":"A"}]},{"type":"paragraph","children":[]},{"type":"paragraph","children":[{"type":"text","text":"B"}]}]`,
			expected: "A\n\nB",
		},
		{
			name:     "plain string",
			raw:      `"Just text"`,
			expected: "Just text",
		},
		{
			name:     "html paragraphs",
			raw:      `"<p>One</p><p>Two <strong>bold</strong></p>"`,
			expected: "One\nTwo bold",
		},
		{
			name:     "html list",
			raw:      `"<ul><li><p>first</p></li><li>second</li></ul>"`,
			expected: "first\nsecond",
		},
		{
			name:     "inline html",
			raw:      `"<span>inline</span> text"`,
			expected: "inline text",
		},
		{name: "null", raw: `null`, expected: ""},
		{name: "empty", raw: ``, expected: ""},
		{name: "number", raw: `42`, expected: ""},
		{name: "object", raw: `{"type":"paragraph"}`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(json.RawMessage(tt.raw)); got != tt.expected {
				t.Errorf("PlainText() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestStripHTML_NoMarkup(t *testing.T) {
	in := "no markup here"
	if got := StripHTML(in); got != in {
		t.Errorf("StripHTML(%q) = %q", in, got)
	}
}
