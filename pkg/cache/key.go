package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key joins non-empty parts into a deterministic cache key.
//
// Example:
//
//	Key("homepage", "en") // "homepage:en"
func Key(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}

// QueryKey renders query parameters as sorted key=value pairs so that
// equivalent parameter sets map to the same cache key.
//
// Example:
//
//	QueryKey(url.Values{"page": {"2"}, "category": {"news"}}) // "category=news:page=2"
func QueryKey(params url.Values) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		values := append([]string(nil), params[key]...)
		sort.Strings(values)
		parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
	}
	return strings.Join(parts, ":")
}
