package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ExcerptLength caps excerpts derived from article bodies, in runes.
const ExcerptLength = 200

// ArticleSummary is the list view of one article.
type ArticleSummary struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Cover       *Image     `json:"cover,omitempty"`
	Category    string     `json:"category,omitempty"`
}

// Articles normalizes an article list. Entries without a title are dropped.
func (n *Normalizer) Articles(raw json.RawMessage) ([]ArticleSummary, error) {
	if isNull(raw) {
		return []ArticleSummary{}, nil
	}
	var probe []json.RawMessage
	if err := json.Unmarshal(relation(raw), &probe); err != nil {
		return nil, fmt.Errorf("normalize: article list is not an array: %w", err)
	}

	items := parseList(raw)
	out := make([]ArticleSummary, 0, len(items))
	for _, o := range items {
		a := ArticleSummary{
			ID:    o.int("id"),
			Title: o.str("title", "name"),
			Slug:  o.str("slug"),
			Cover: n.Image(o.raw("cover", "image", "thumbnail")),
		}
		if a.Title == "" {
			n.logger.Warn().Int("id", a.ID).Msg("Article without title, skipping")
			continue
		}

		a.Excerpt = PlainText(o.raw("excerpt", "summary", "description"))
		if a.Excerpt == "" {
			a.Excerpt = truncate(PlainText(o.raw("content", "body")), ExcerptLength)
		}

		if ts := o.str("publishedAt", "published_at", "createdAt"); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				a.PublishedAt = &t
			}
		}
		if cat, ok := o.obj("category"); ok {
			a.Category = cat.str("slug", "name")
		}
		out = append(out, a)
	}
	return out, nil
}

// truncate shortens s to at most limit runes on a word boundary.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndexAny(cut, " \n"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
