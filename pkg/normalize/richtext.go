package normalize

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// richNode is one node of a block rich-text tree.
type richNode struct {
	Type     string     `json:"type"`
	Text     *string    `json:"text"`
	Children []richNode `json:"children"`
}

// PlainText flattens a rich-text value to plain text.
//
// Block trees keep only the leaf text of top-level paragraph blocks, in
// document order, one line per paragraph; headings, lists, quotes and
// other block types are dropped. Strings are returned as-is, with HTML
// markup stripped. Anything else yields "".
func PlainText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return StripHTML(s)
	case '[':
		var nodes []richNode
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return ""
		}
		var paragraphs []string
		for _, n := range nodes {
			if n.Type != "paragraph" {
				continue
			}
			var b strings.Builder
			leafText(n, &b)
			paragraphs = append(paragraphs, b.String())
		}
		return strings.Join(paragraphs, "\n")
	default:
		return ""
	}
}

// leafText appends the text of every leaf under n in document order.
func leafText(n richNode, b *strings.Builder) {
	if n.Text != nil {
		b.WriteString(*n.Text)
	}
	for _, c := range n.Children {
		leafText(c, b)
	}
}

// StripHTML returns the text content of s when it contains markup.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	var lines []string
	doc.Find("p, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		if sel.Find("p, li").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	return strings.TrimSpace(doc.Text())
}
