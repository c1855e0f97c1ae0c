// Package registry holds the static tables that tell the aggregator which
// upstream resources each page needs and where those resources live.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Priority is a hint for how important a page is to keep warm.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// rank orders priorities for sorting, high first.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Names of the logical cache stores pages are assigned to.
const (
	CacheHomepage = "homepage"
	CachePages    = "pages"
	CacheNews     = "news"
	CacheMenus    = "menus"
)

const (
	// NavigationResource is the resource every page renders and the only
	// resource of the fallback page configuration.
	NavigationResource = "menus"

	// DefaultFillDepth is used for resources missing from the endpoint table.
	DefaultFillDepth = 1

	// DefaultPageCacheDuration is the cache duration of the fallback page configuration.
	DefaultPageCacheDuration = 5 * time.Minute
)

// PageResourceConfig lists the resources one page needs.
type PageResourceConfig struct {
	PageID        string        `json:"page_id"`
	Resources     []string      `json:"resources"`
	CacheDuration time.Duration `json:"cache_duration"`
	Priority      Priority      `json:"priority"`
	// Cache names the store the assembled page is kept in.
	Cache string `json:"cache"`
}

// ResourceEndpointConfig says where a named resource is fetched from.
type ResourceEndpointConfig struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	// FillDepth controls how many levels of relations upstream expands.
	FillDepth int `json:"fill_depth"`
}

// Registry is a read-only lookup over page and resource tables.
// It is safe for concurrent use once constructed.
type Registry struct {
	pages     map[string]PageResourceConfig
	resources map[string]ResourceEndpointConfig
	logger    zerolog.Logger
}

// New builds a registry from the given tables. Later definitions with the
// same id replace earlier ones. Pages without a cache name go to CachePages.
func New(pages []PageResourceConfig, resources []ResourceEndpointConfig) *Registry {
	r := &Registry{
		pages:     make(map[string]PageResourceConfig, len(pages)),
		resources: make(map[string]ResourceEndpointConfig, len(resources)),
		logger:    log.With().Str("component", "registry").Logger(),
	}
	for _, res := range resources {
		r.resources[res.Name] = res
	}
	for _, p := range pages {
		if p.Cache == "" {
			p.Cache = CachePages
		}
		p.Resources = append([]string(nil), p.Resources...)
		r.pages[p.PageID] = p
	}
	return r
}

// WithLogger returns a copy of r that logs through logger.
func (r *Registry) WithLogger(logger zerolog.Logger) *Registry {
	cp := *r
	cp.logger = logger
	return &cp
}

// Page returns the configuration registered for pageID.
func (r *Registry) Page(pageID string) (PageResourceConfig, bool) {
	p, ok := r.pages[pageID]
	if !ok {
		return PageResourceConfig{}, false
	}
	p.Resources = append([]string(nil), p.Resources...)
	return p, true
}

// PageOrDefault returns the configuration for pageID, or a minimal
// navigation-only configuration (with a warning) when pageID is unknown.
func (r *Registry) PageOrDefault(pageID string) PageResourceConfig {
	if p, ok := r.Page(pageID); ok {
		return p
	}
	r.logger.Warn().Str("page", pageID).Msg("Unknown page, using navigation-only configuration")
	return FallbackPage(pageID)
}

// FallbackPage is the configuration used for unknown page ids.
func FallbackPage(pageID string) PageResourceConfig {
	return PageResourceConfig{
		PageID:        pageID,
		Resources:     []string{NavigationResource},
		CacheDuration: DefaultPageCacheDuration,
		Priority:      PriorityLow,
		Cache:         CachePages,
	}
}

// Resource returns the endpoint registered for name.
func (r *Registry) Resource(name string) (ResourceEndpointConfig, bool) {
	res, ok := r.resources[name]
	return res, ok
}

// ResourceOrDefault returns the endpoint for name, or a generic
// "/api/{name}" endpoint (with a warning) when name is unknown.
func (r *Registry) ResourceOrDefault(name string) ResourceEndpointConfig {
	if res, ok := r.resources[name]; ok {
		return res
	}
	r.logger.Warn().Str("resource", name).Msg("Unknown resource, using generic endpoint")
	return ResourceEndpointConfig{
		Name:      name,
		Endpoint:  fmt.Sprintf("/api/%s", name),
		FillDepth: DefaultFillDepth,
	}
}

// Pages returns every page configuration, highest priority first and
// then by page id.
func (r *Registry) Pages() []PageResourceConfig {
	out := make([]PageResourceConfig, 0, len(r.pages))
	for id := range r.pages {
		p, _ := r.Page(id)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority.rank() != out[j].Priority.rank() {
			return out[i].Priority.rank() < out[j].Priority.rank()
		}
		return out[i].PageID < out[j].PageID
	})
	return out
}

// Resources returns every endpoint configuration sorted by name.
func (r *Registry) Resources() []ResourceEndpointConfig {
	out := make([]ResourceEndpointConfig, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Unresolved lists "page/resource" pairs whose resource has no endpoint.
// Such resources still load through the generic endpoint.
func (r *Registry) Unresolved() []string {
	var out []string
	for _, p := range r.Pages() {
		for _, name := range p.Resources {
			if _, ok := r.resources[name]; !ok {
				out = append(out, p.PageID+"/"+name)
			}
		}
	}
	return out
}
