package aggregator

import (
	"time"

	"github.com/Sternrassler/cms-page-cache/pkg/cache"
	"github.com/Sternrassler/cms-page-cache/pkg/registry"
)

// StoreSettings sizes one cache store.
type StoreSettings struct {
	TTL        time.Duration
	MaxEntries int
}

// CacheSettings sizes the four logical stores.
type CacheSettings struct {
	Homepage StoreSettings
	Pages    StoreSettings
	News     StoreSettings
	Menus    StoreSettings
}

// DefaultCacheSettings returns durations tuned to how often each kind of
// content changes upstream.
func DefaultCacheSettings() CacheSettings {
	return CacheSettings{
		Homepage: StoreSettings{TTL: 15 * time.Minute, MaxEntries: 20},
		Pages:    StoreSettings{TTL: 30 * time.Minute, MaxEntries: 100},
		News:     StoreSettings{TTL: 5 * time.Minute, MaxEntries: 50},
		Menus:    StoreSettings{TTL: time.Hour, MaxEntries: 20},
	}
}

// Caches owns one store per logical cache and the facade over them.
type Caches struct {
	stores   map[string]*cache.Store[*PageData]
	registry *cache.Registry
}

// NewCaches constructs the homepage, pages, news and menus stores.
// Extra options (for example cache.WithClock) apply to every store.
func NewCaches(settings CacheSettings, opts ...cache.Option) *Caches {
	build := func(name string, s StoreSettings) *cache.Store[*PageData] {
		all := append([]cache.Option{cache.WithTTL(s.TTL), cache.WithMaxEntries(s.MaxEntries)}, opts...)
		return cache.NewStore[*PageData](name, all...)
	}

	c := &Caches{
		stores: map[string]*cache.Store[*PageData]{
			registry.CacheHomepage: build(registry.CacheHomepage, settings.Homepage),
			registry.CachePages:    build(registry.CachePages, settings.Pages),
			registry.CacheNews:     build(registry.CacheNews, settings.News),
			registry.CacheMenus:    build(registry.CacheMenus, settings.Menus),
		},
	}
	c.registry = cache.NewRegistry(
		c.stores[registry.CacheHomepage],
		c.stores[registry.CachePages],
		c.stores[registry.CacheNews],
		c.stores[registry.CacheMenus],
	)
	return c
}

// For returns the store called name, or the pages store for unknown names.
func (c *Caches) For(name string) *cache.Store[*PageData] {
	if s, ok := c.stores[name]; ok {
		return s
	}
	return c.stores[registry.CachePages]
}

// Registry returns the administration facade over all stores.
func (c *Caches) Registry() *cache.Registry {
	return c.registry
}
