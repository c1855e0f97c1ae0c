// Package locale normalizes client-supplied locale tags to the canonical
// locale codes the CMS expects.
package locale

import (
	"sort"
	"strings"
)

// DefaultLocale is the canonical code every unrecognized tag resolves to.
const DefaultLocale = "en"

// Config describes the canonical locale set and its aliases.
type Config struct {
	// Default is the canonical code used for unrecognized input.
	Default string

	// Supported lists the canonical codes (e.g. "en", "vi").
	Supported []string

	// Aliases maps regional or short forms to canonical codes
	// (e.g. "en-US" -> "en", "vn" -> "vi").
	Aliases map[string]string
}

// DefaultConfig returns the built-in locale table.
func DefaultConfig() Config {
	return Config{
		Default:   DefaultLocale,
		Supported: []string{"en", "vi", "ja"},
		Aliases: map[string]string{
			"en-us": "en",
			"en-gb": "en",
			"us":    "en",
			"gb":    "en",
			"vi-vn": "vi",
			"vn":    "vi",
			"ja-jp": "ja",
			"jp":    "ja",
		},
	}
}

// Resolver maps arbitrary locale strings to canonical codes.
// A Resolver is immutable and safe for concurrent use.
type Resolver struct {
	def       string
	supported map[string]struct{}
	aliases   map[string]string
}

// New builds a Resolver. The default locale is always treated as supported,
// and aliases pointing at unsupported codes are ignored.
func New(cfg Config) *Resolver {
	def := canonicalize(cfg.Default)
	if def == "" {
		def = DefaultLocale
	}

	r := &Resolver{
		def:       def,
		supported: map[string]struct{}{def: {}},
		aliases:   make(map[string]string, len(cfg.Aliases)),
	}
	for _, code := range cfg.Supported {
		if c := canonicalize(code); c != "" {
			r.supported[c] = struct{}{}
		}
	}
	for alias, target := range cfg.Aliases {
		t := canonicalize(target)
		if _, ok := r.supported[t]; !ok {
			continue
		}
		r.aliases[canonicalize(alias)] = t
	}
	return r
}

// Default returns a Resolver built from DefaultConfig.
func Default() *Resolver {
	return New(DefaultConfig())
}

// Normalize returns the canonical code for raw. It never fails: anything
// that is not a canonical code, a known alias, or a tag whose primary
// subtag is canonical resolves to the default locale.
func (r *Resolver) Normalize(raw string) string {
	tag := canonicalize(raw)
	if tag == "" {
		return r.def
	}
	if _, ok := r.supported[tag]; ok {
		return tag
	}
	if target, ok := r.aliases[tag]; ok {
		return target
	}
	if primary, _, found := strings.Cut(tag, "-"); found {
		if _, ok := r.supported[primary]; ok {
			return primary
		}
		if target, ok := r.aliases[primary]; ok {
			return target
		}
	}
	return r.def
}

// Chain returns the ordered canonical locales a page load should attempt:
// the normalized requested locale, then the default. The chain holds a
// single element when raw normalizes to the default code.
func (r *Resolver) Chain(raw string) []string {
	loc := r.Normalize(raw)
	if loc == r.def {
		return []string{loc}
	}
	return []string{loc, r.def}
}

// Default returns the default canonical code.
func (r *Resolver) Default() string {
	return r.def
}

// IsSupported reports whether code is a canonical code.
func (r *Resolver) IsSupported(code string) bool {
	_, ok := r.supported[canonicalize(code)]
	return ok
}

// Supported returns the canonical codes in sorted order.
func (r *Resolver) Supported() []string {
	out := make([]string, 0, len(r.supported))
	for code := range r.supported {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func canonicalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.ReplaceAll(s, "_", "-")
}
