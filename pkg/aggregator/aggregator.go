// Package aggregator assembles page data from the upstream content API.
//
// For each page the aggregator looks up the resources it needs, fetches
// them concurrently, substitutes fallback payloads for the ones that fail
// and caches the assembled PageData. Individual resource failures never
// reach the caller; only a failure of the whole aggregation does, after one
// retry with the default locale.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/cms-page-cache/pkg/cache"
	"github.com/Sternrassler/cms-page-cache/pkg/client"
	"github.com/Sternrassler/cms-page-cache/pkg/locale"
	"github.com/Sternrassler/cms-page-cache/pkg/logging"
	"github.com/Sternrassler/cms-page-cache/pkg/pagination"
	"github.com/Sternrassler/cms-page-cache/pkg/registry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrAggregation is returned when a page could not be assembled at all.
	ErrAggregation = errors.New("page aggregation failed")

	// ErrNoFetcher is returned by New when Options.Fetcher is nil.
	ErrNoFetcher = errors.New("fetcher is required")
)

// Fetcher loads one named resource. *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, resource, locale string, extra url.Values) client.FetchResult
}

// Options configures an Aggregator.
type Options struct {
	Registry *registry.Registry
	Fetcher  Fetcher
	Locales  *locale.Resolver
	Caches   *Caches
	Logger   *zerolog.Logger

	// MaxConcurrency limits in-flight fetches per page load; 0 means no limit.
	MaxConcurrency int

	// Coalesce shares one in-flight load between concurrent misses of the
	// same cache key. Off by default: concurrent misses each fetch upstream.
	Coalesce bool

	// DegradedTTL, when positive, caps how long pages with failed
	// resources stay cached.
	DegradedTTL time.Duration

	// Pagination configures LoadArticleArchive.
	Pagination pagination.Config

	// Clock replaces time.Now (used by tests).
	Clock func() time.Time
}

// Aggregator loads and caches page data. It is safe for concurrent use.
type Aggregator struct {
	registry       *registry.Registry
	fetcher        Fetcher
	locales        *locale.Resolver
	caches         *Caches
	logger         zerolog.Logger
	maxConcurrency int
	coalesce       bool
	degradedTTL    time.Duration
	pagination     pagination.Config
	now            func() time.Time
	group          singleflight.Group
}

// New creates an Aggregator. Nil registry, resolver and caches fall back to
// the built-in defaults.
func New(opts Options) (*Aggregator, error) {
	if opts.Fetcher == nil {
		return nil, ErrNoFetcher
	}
	a := &Aggregator{
		registry:       opts.Registry,
		fetcher:        opts.Fetcher,
		locales:        opts.Locales,
		caches:         opts.Caches,
		maxConcurrency: opts.MaxConcurrency,
		coalesce:       opts.Coalesce,
		degradedTTL:    opts.DegradedTTL,
		pagination:     opts.Pagination,
		now:            opts.Clock,
	}
	if a.registry == nil {
		a.registry = registry.Default()
	}
	if a.locales == nil {
		a.locales = locale.Default()
	}
	if a.caches == nil {
		a.caches = NewCaches(DefaultCacheSettings())
	}
	if opts.Logger != nil {
		a.logger = *opts.Logger
	} else {
		a.logger = logging.NewLogger("aggregator")
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// Caches returns the stores the aggregator writes to.
func (a *Aggregator) Caches() *Caches {
	return a.caches
}

// Locales returns the locale resolver.
func (a *Aggregator) Locales() *locale.Resolver {
	return a.locales
}

// Registry returns the page registry.
func (a *Aggregator) Registry() *registry.Registry {
	return a.registry
}

// request describes one cacheable aggregation.
type request struct {
	pageID    string
	label     string
	resources []string
	cache     string
	duration  time.Duration
	extra     url.Values
	keyParts  []string
}

func (r request) key(loc string) string {
	return cache.Key(append([]string{r.pageID, loc}, r.keyParts...)...)
}

// LoadPage returns the data of pageID in locale, from cache when possible.
// Unknown page ids load navigation only. The returned value may be shared
// with other callers and must not be modified.
func (a *Aggregator) LoadPage(ctx context.Context, pageID, rawLocale string) (*PageData, error) {
	cfg := a.registry.PageOrDefault(pageID)

	label := cfg.PageID
	if _, ok := a.registry.Page(pageID); !ok {
		label = "unknown"
	}

	return a.load(ctx, request{
		pageID:    cfg.PageID,
		label:     label,
		resources: cfg.Resources,
		cache:     cfg.Cache,
		duration:  cfg.CacheDuration,
	}, rawLocale)
}

// LoadNavigation returns the navigation menus in locale.
func (a *Aggregator) LoadNavigation(ctx context.Context, rawLocale string) (*PageData, error) {
	store := a.caches.For(registry.CacheMenus)
	return a.load(ctx, request{
		pageID:    "navigation",
		label:     "navigation",
		resources: []string{registry.NavigationResource},
		cache:     registry.CacheMenus,
		duration:  store.TTL(),
	}, rawLocale)
}

// load walks the locale chain, trying each locale once.
func (a *Aggregator) load(ctx context.Context, req request, rawLocale string) (*PageData, error) {
	chain := a.locales.Chain(rawLocale)

	var lastErr error
	for i, candidate := range chain {
		loc := a.locales.Normalize(candidate)
		if i > 0 {
			LocaleFallbacks.Inc()
			a.logger.Warn().
				Err(lastErr).
				Str("page", req.pageID).
				Str("requested_locale", rawLocale).
				Str("locale", loc).
				Msg("Page load failed, retrying with default locale")
		}

		pd, err := a.loadLocale(ctx, req, loc)
		if err == nil {
			return pd, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	PageLoads.WithLabelValues(req.label, OutcomeFailed).Inc()
	a.logger.Error().
		Err(lastErr).
		Str("page", req.pageID).
		Str("locale", rawLocale).
		Msg("Page load failed")
	return nil, lastErr
}

// loadLocale serves one locale from cache or assembles it.
func (a *Aggregator) loadLocale(ctx context.Context, req request, loc string) (*PageData, error) {
	store := a.caches.For(req.cache)
	key := req.key(loc)

	if pd, ok := store.Get(key); ok {
		PageLoads.WithLabelValues(req.label, OutcomeHit).Inc()
		return pd, nil
	}

	if !a.coalesce {
		return a.assemble(ctx, req, loc, key, store)
	}

	// The shared load outlives any one caller; each caller stops waiting
	// when its own context ends.
	ch := a.group.DoChan(store.Name()+"|"+key, func() (any, error) {
		if pd, ok := store.Get(key); ok {
			return pd, nil
		}
		return a.assemble(context.WithoutCancel(ctx), req, loc, key, store)
	})
	select {
	case res := <-ch:
		if res.Shared {
			CoalescedLoads.WithLabelValues(req.label).Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*PageData), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrAggregation, ctx.Err())
	}
}

// assemble fetches every resource of req, substitutes fallbacks for
// failures, and caches the result.
func (a *Aggregator) assemble(ctx context.Context, req request, loc, key string, store *cache.Store[*PageData]) (*PageData, error) {
	start := a.now()

	results, err := a.fanOut(ctx, req.resources, loc, req.extra)
	if err != nil {
		return nil, err
	}

	pd := newPageData(req.pageID, loc, len(results))

	for _, r := range results {
		if r.Meta != nil && r.Meta.Pagination != nil {
			pd.Pagination = r.Meta.Pagination
		}
		if r.Succeeded {
			pd.Resources[r.ResourceName] = r.Data
			pd.Meta.SucceededResources = append(pd.Meta.SucceededResources, r.ResourceName)
			continue
		}

		pd.Resources[r.ResourceName] = Fallback(r.ResourceName)
		pd.Meta.FailedResources = append(pd.Meta.FailedResources, FailedResource{
			ResourceName: r.ResourceName,
			Error:        r.Error,
			Class:        string(r.Class),
		})
		a.logger.Warn().
			Str("page", req.pageID).
			Str("locale", loc).
			Str("resource", r.ResourceName).
			Str("error_class", string(r.Class)).
			Str("error", r.Error).
			Msg("Resource failed, using fallback payload")
	}
	return a.publish(pd, start, req.label, key, req.duration, store), nil
}

// publish stamps pd's meta, stores it and records metrics.
func (a *Aggregator) publish(pd *PageData, start time.Time, label, key string, duration time.Duration, store *cache.Store[*PageData]) *PageData {
	pd.Meta.HasErrors = len(pd.Meta.FailedResources) > 0
	if pd.Meta.HasErrors && a.degradedTTL > 0 && a.degradedTTL < duration {
		duration = a.degradedTTL
	}

	loadedAt := a.now()
	pd.Meta.LoadedAt = loadedAt
	pd.Meta.LoadTimeMs = loadedAt.Sub(start).Milliseconds()
	pd.Meta.CacheExpiresAt = loadedAt.Add(duration)

	store.Put(key, pd, duration)

	outcome := OutcomeMiss
	if pd.Meta.HasErrors {
		outcome = OutcomeDegraded
	}
	PageLoads.WithLabelValues(label, outcome).Inc()
	PageLoadDuration.WithLabelValues(label).Observe(loadedAt.Sub(start).Seconds())

	a.logger.Info().
		Str("page", pd.Meta.PageID).
		Str("locale", pd.Meta.Locale).
		Str("cache", store.Name()).
		Int("succeeded", len(pd.Meta.SucceededResources)).
		Int("failed", len(pd.Meta.FailedResources)).
		Int64("load_time_ms", pd.Meta.LoadTimeMs).
		Msg("Page assembled")

	return pd
}

// newPageData returns an empty PageData for pageID in loc.
func newPageData(pageID, loc string, n int) *PageData {
	return &PageData{
		Resources: make(map[string]json.RawMessage, n),
		Meta: Meta{
			PageID:             pageID,
			Locale:             loc,
			SucceededResources: []string{},
			FailedResources:    []FailedResource{},
		},
	}
}

// fanOut fetches names concurrently and waits for all of them. Per-resource
// failures are carried in the results; a panic in a fetch or a cancelled
// context fails the whole aggregation.
func (a *Aggregator) fanOut(ctx context.Context, names []string, loc string, extra url.Values) ([]client.FetchResult, error) {
	results := make([]client.FetchResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}

	for i, name := range names {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: fetch %s panicked: %v", ErrAggregation, name, r)
				}
			}()
			res := a.fetcher.Fetch(gctx, name, loc, extra)
			res.ResourceName = name
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregation, err)
	}
	return results, nil
}
