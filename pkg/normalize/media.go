package normalize

import (
	"encoding/json"
	"strings"
)

// Image is a resolved media reference.
type Image struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Link is a call-to-action.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Image resolves a single media value. It accepts a plain URL string, a
// flat {url, alternativeText} object, and the {data: {attributes: ...}}
// envelope. Relative URLs are prefixed with the media base URL.
func (n *Normalizer) Image(raw json.RawMessage) *Image {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return &Image{URL: n.mediaURL(s)}
	}
	if items := parseList(raw); len(items) > 0 {
		return n.imageFrom(items[0])
	}
	o, ok := parseObject(raw)
	if !ok {
		return nil
	}
	return n.imageFrom(o)
}

// Images resolves a multiple-media value.
func (n *Normalizer) Images(raw json.RawMessage) []Image {
	var out []Image
	for _, o := range parseList(raw) {
		if img := n.imageFrom(o); img != nil {
			out = append(out, *img)
		}
	}
	return out
}

func (n *Normalizer) imageFrom(o object) *Image {
	url := o.str("url")
	if url == "" {
		return nil
	}
	return &Image{
		URL:    n.mediaURL(url),
		Alt:    o.str("alternativeText", "alt", "caption", "name"),
		Width:  o.int("width"),
		Height: o.int("height"),
	}
}

func (n *Normalizer) mediaURL(u string) string {
	if n.mediaBaseURL == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "//") {
		return u
	}
	return n.mediaBaseURL + "/" + strings.TrimLeft(u, "/")
}

// link reads a call-to-action from o under keys.
func link(o object, keys ...string) *Link {
	l, ok := o.obj(keys...)
	if !ok {
		return nil
	}
	url := l.str("url", "href", "link")
	if url == "" {
		return nil
	}
	return &Link{Label: l.str("label", "text", "title"), URL: url}
}
