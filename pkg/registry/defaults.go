package registry

import "time"

// DefaultResources is the built-in resource endpoint table.
func DefaultResources() []ResourceEndpointConfig {
	return []ResourceEndpointConfig{
		{Name: "homepage", Endpoint: "/api/homepage", FillDepth: 5},
		{Name: "menus", Endpoint: "/api/menus", FillDepth: 3},
		{Name: "about", Endpoint: "/api/about-page", FillDepth: 4},
		{Name: "services", Endpoint: "/api/services", FillDepth: 3},
		{Name: "articles", Endpoint: "/api/articles", FillDepth: 2},
		{Name: "contact", Endpoint: "/api/contact-page", FillDepth: 2},
		{Name: "careers", Endpoint: "/api/careers", FillDepth: 2},
		{Name: "global", Endpoint: "/api/global", FillDepth: 1},
	}
}

// DefaultPages is the built-in page table.
func DefaultPages() []PageResourceConfig {
	return []PageResourceConfig{
		{
			PageID:        "homepage",
			Resources:     []string{"homepage", "menus"},
			CacheDuration: 15 * time.Minute,
			Priority:      PriorityHigh,
			Cache:         CacheHomepage,
		},
		{
			PageID:        "about",
			Resources:     []string{"about", "menus"},
			CacheDuration: 30 * time.Minute,
			Priority:      PriorityMedium,
			Cache:         CachePages,
		},
		{
			PageID:        "services",
			Resources:     []string{"services", "menus"},
			CacheDuration: 30 * time.Minute,
			Priority:      PriorityMedium,
			Cache:         CachePages,
		},
		{
			PageID:        "news",
			Resources:     []string{"articles", "menus"},
			CacheDuration: 5 * time.Minute,
			Priority:      PriorityHigh,
			Cache:         CacheNews,
		},
		{
			PageID:        "contact",
			Resources:     []string{"contact", "global", "menus"},
			CacheDuration: time.Hour,
			Priority:      PriorityLow,
			Cache:         CachePages,
		},
		{
			PageID:        "careers",
			Resources:     []string{"careers", "menus"},
			CacheDuration: 30 * time.Minute,
			Priority:      PriorityLow,
			Cache:         CachePages,
		},
	}
}

// Default returns a registry with the built-in tables.
func Default() *Registry {
	return New(DefaultPages(), DefaultResources())
}
