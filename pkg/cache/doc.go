// Package cache provides the process-local TTL stores that hold page data,
// navigation menus and article lists, plus the administration facade over them.
//
// Each logical cache is an explicitly constructed Store with its own default
// TTL and entry ceiling tuned to how often that content changes. Stores are
// never shared across processes and nothing is persisted.
//
// # Basic Usage
//
//	// Create a store for page data
//	pages := cache.NewStore[*PageData]("pages",
//		cache.WithTTL(30*time.Minute),
//		cache.WithMaxEntries(100),
//	)
//
//	// Store and look up by a deterministic key
//	key := cache.Key("about", "en")
//	pages.Put(key, data, 0) // 0 = store TTL
//
//	if data, ok := pages.Get(key); ok {
//		// Cache hit
//	}
//
// # Expiry and Eviction
//
// Two independent mechanisms bound a store:
//
//   - Deadline removal: every Put arms a timer that deletes that entry when
//     it expires. Get also treats an entry past its deadline as a miss.
//   - Size ceiling: when a Put pushes the store past MaxEntries, the oldest
//     half of the entries (by insertion order) is evicted immediately.
//
// # Administration
//
//	reg := cache.NewRegistry(homepage, pages, news, menus)
//	reg.Status()           // per-store size, keys, next expiry
//	reg.ClearOne("news")   // ErrUnknownCache for unknown names
//	reg.ClearAll()         // idempotent
//	reg.ClearExpired()     // proactive sweep
//	go reg.RunJanitor(ctx, time.Minute)
//
// # Metrics
//
// The stores export Prometheus metrics:
//
//   - cms_cache_hits_total{cache} - Cache hits
//   - cms_cache_misses_total{cache} - Cache misses
//   - cms_cache_evictions_total{cache,reason} - Removed entries (expired, capacity, cleared)
//   - cms_cache_entries{cache} - Resident entries
package cache
