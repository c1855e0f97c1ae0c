package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/cms-page-cache/internal/testutil"
	"github.com/Sternrassler/cms-page-cache/pkg/client"
	"github.com/Sternrassler/cms-page-cache/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher answers every resource with {"resource":..,"locale":..}
// unless fn overrides it.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	fn       func(resource, locale string, call int) client.FetchResult
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, resource, locale string, extra url.Values) client.FetchResult {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[resource+"|"+locale]++
	call := f.calls[resource+"|"+locale]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}

	if f.fn != nil {
		return f.fn(resource, locale, call)
	}
	return okResult(resource, locale)
}

func (f *fakeFetcher) count(resource, locale string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[resource+"|"+locale]
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func okResult(resource, locale string) client.FetchResult {
	data, _ := json.Marshal(map[string]string{"resource": resource, "locale": locale})
	return client.FetchResult{ResourceName: resource, Data: data, Succeeded: true, StatusCode: http.StatusOK}
}

func newTestAggregator(t *testing.T, f Fetcher, mutate func(*Options)) *Aggregator {
	t.Helper()
	opts := Options{Fetcher: f, Caches: NewCaches(DefaultCacheSettings())}
	if mutate != nil {
		mutate(&opts)
	}
	a, err := New(opts)
	require.NoError(t, err)
	return a
}

func TestNew_RequiresFetcher(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestLoadPage_PartialFailure(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetResponse("/api/homepage", testutil.NewServerErrorResponse())
	mock.SetData("/api/menus", []map[string]string{{"title": "Main"}})

	c, err := client.New(client.DefaultConfig(mock.URL()), registry.Default())
	require.NoError(t, err)
	a := newTestAggregator(t, c, nil)

	pd, err := a.LoadPage(context.Background(), "homepage", "en")
	require.NoError(t, err)

	assert.JSONEq(t, `[{"title":"Main"}]`, string(pd.Resource("menus")))
	assert.JSONEq(t, string(Fallback("homepage")), string(pd.Resource("homepage")))

	assert.True(t, pd.Meta.HasErrors)
	assert.Equal(t, []string{"menus"}, pd.Meta.SucceededResources)
	require.Len(t, pd.Meta.FailedResources, 1)
	assert.Equal(t, "homepage", pd.Meta.FailedResources[0].ResourceName)
	assert.Contains(t, pd.Meta.FailedResources[0].Error, "500")
	assert.Equal(t, string(client.ErrorClassServer), pd.Meta.FailedResources[0].Class)

	assert.Equal(t, "homepage", pd.Meta.PageID)
	assert.Equal(t, "en", pd.Meta.Locale)
	assert.Equal(t, 15*time.Minute, pd.Meta.CacheExpiresAt.Sub(pd.Meta.LoadedAt))
	assert.Equal(t, 1, mock.RequestCount("/api/homepage"))
	assert.Equal(t, 1, mock.RequestCount("/api/menus"))
}

func TestLoadPage_CacheHit(t *testing.T) {
	f := newFakeFetcher()
	a := newTestAggregator(t, f, nil)
	ctx := context.Background()

	first, err := a.LoadPage(ctx, "about", "en")
	require.NoError(t, err)
	second, err := a.LoadPage(ctx, "about", "en")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 2, f.total(), "second load must not reach upstream")
	assert.Equal(t, []string{"about:en"}, a.Caches().For(registry.CachePages).Keys())
}

func TestLoadPage_CacheScopedPerPage(t *testing.T) {
	f := newFakeFetcher()
	a := newTestAggregator(t, f, nil)
	ctx := context.Background()

	_, err := a.LoadPage(ctx, "homepage", "en")
	require.NoError(t, err)
	_, err = a.LoadPage(ctx, "news", "en")
	require.NoError(t, err)

	assert.Equal(t, 1, a.Caches().For(registry.CacheHomepage).Len())
	assert.Equal(t, 1, a.Caches().For(registry.CacheNews).Len())
	assert.Equal(t, 0, a.Caches().For(registry.CachePages).Len())
}

func TestLoadPage_UnknownPage(t *testing.T) {
	f := newFakeFetcher()
	a := newTestAggregator(t, f, nil)

	pd, err := a.LoadPage(context.Background(), "does-not-exist", "en")
	require.NoError(t, err)

	assert.Equal(t, []string{registry.NavigationResource}, pd.Meta.SucceededResources)
	assert.Len(t, pd.Resources, 1)
	assert.Equal(t, 1, f.total())
}

func TestLoadPage_LocaleNormalization(t *testing.T) {
	f := newFakeFetcher()
	a := newTestAggregator(t, f, nil)
	ctx := context.Background()

	pd, err := a.LoadPage(ctx, "about", "vi-VN")
	require.NoError(t, err)
	assert.Equal(t, "vi", pd.Meta.Locale)
	assert.Equal(t, 1, f.count("about", "vi"))

	again, err := a.LoadPage(ctx, "about", "vn")
	require.NoError(t, err)
	assert.Same(t, pd, again, "aliases share one cache entry")
}

func TestLoadPage_LocaleFallback(t *testing.T) {
	tests := []struct {
		name   string
		locale string
		fn     func(resource, locale string, call int) client.FetchResult
	}{
		{
			name:   "supported locale fails, default succeeds",
			locale: "vi",
			fn: func(resource, locale string, call int) client.FetchResult {
				if locale == "vi" {
					panic("upstream adapter bug")
				}
				return okResult(resource, locale)
			},
		},
		{
			name:   "regional tag fails, default succeeds",
			locale: "vi_VN",
			fn: func(resource, locale string, call int) client.FetchResult {
				if locale == "vi" {
					panic("upstream adapter bug")
				}
				return okResult(resource, locale)
			},
		},
		{
			name:   "unsupported locale loads the default directly",
			locale: "xx-unsupported",
			fn: func(resource, locale string, call int) client.FetchResult {
				return okResult(resource, locale)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			f.fn = tt.fn
			a := newTestAggregator(t, f, nil)

			pd, err := a.LoadPage(context.Background(), "about", tt.locale)
			require.NoError(t, err)
			assert.Equal(t, "en", pd.Meta.Locale)
			assert.False(t, pd.Meta.HasErrors)
		})
	}
}

func TestLoadPage_LocaleFallbackExhausted(t *testing.T) {
	f := newFakeFetcher()
	f.fn = func(resource, locale string, call int) client.FetchResult {
		panic("always broken")
	}
	a := newTestAggregator(t, f, nil)

	_, err := a.LoadPage(context.Background(), "about", "ja")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAggregation)
	assert.Positive(t, f.count("about", "ja"))
	assert.Positive(t, f.count("about", "en"))
	assert.Equal(t, 0, a.Caches().For(registry.CachePages).Len(), "failed loads are not cached")
}

func TestLoadPage_DefaultLocaleNotRetried(t *testing.T) {
	var attempts atomic.Int32
	f := newFakeFetcher()
	f.fn = func(resource, locale string, call int) client.FetchResult {
		if resource == "about" {
			attempts.Add(1)
		}
		panic("broken")
	}
	a := newTestAggregator(t, f, nil)

	_, err := a.LoadPage(context.Background(), "about", "en")
	require.ErrorIs(t, err, ErrAggregation)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestLoadPage_DefaultAliasesNotRetried(t *testing.T) {
	for _, raw := range []string{"en", "EN", "en-US", "en_GB", "us", "xx-unsupported"} {
		t.Run(raw, func(t *testing.T) {
			f := newFakeFetcher()
			f.fn = func(resource, locale string, call int) client.FetchResult {
				panic("broken")
			}
			a := newTestAggregator(t, f, nil)

			_, err := a.LoadPage(context.Background(), "about", raw)
			require.ErrorIs(t, err, ErrAggregation)
			assert.Equal(t, 1, f.count("about", "en"), "one attempt against the default locale")
			assert.Equal(t, 2, f.total(), "one aggregation of about and menus")
		})
	}
}

func TestLoadPage_CancelledContext(t *testing.T) {
	f := newFakeFetcher()
	a := newTestAggregator(t, f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.LoadPage(ctx, "about", "vi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAggregation)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.count("about", "en"), "cancelled loads do not walk the locale chain")
}

func TestLoadPage_Coalesce(t *testing.T) {
	f := newFakeFetcher()
	f.delay = 50 * time.Millisecond
	a := newTestAggregator(t, f, func(o *Options) { o.Coalesce = true })

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*PageData, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pd, err := a.LoadPage(context.Background(), "services", "en")
			assert.NoError(t, err)
			results[i] = pd
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.count("services", "en"))
	assert.Equal(t, 1, f.count("menus", "en"))
	for _, pd := range results {
		assert.Same(t, results[0], pd)
	}
}

func TestLoadPage_CoalescedCallerCancelDoesNotFailOthers(t *testing.T) {
	f := newFakeFetcher()
	f.delay = 200 * time.Millisecond
	a := newTestAggregator(t, f, func(o *Options) { o.Coalesce = true })

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	defer cancelLeader()

	leaderErr := make(chan error, 1)
	go func() {
		_, err := a.LoadPage(leaderCtx, "services", "en")
		leaderErr <- err
	}()

	// Let the first caller start the shared load before the second joins.
	require.Eventually(t, func() bool { return f.count("services", "en") == 1 },
		time.Second, time.Millisecond)

	followerDone := make(chan *PageData, 1)
	go func() {
		pd, err := a.LoadPage(context.Background(), "services", "en")
		assert.NoError(t, err)
		followerDone <- pd
	}()

	time.Sleep(20 * time.Millisecond)
	cancelLeader()

	err := <-leaderErr
	require.ErrorIs(t, err, ErrAggregation)
	assert.ErrorIs(t, err, context.Canceled)

	pd := <-followerDone
	require.NotNil(t, pd)
	assert.False(t, pd.Meta.HasErrors)
	assert.Equal(t, 1, f.count("services", "en"))

	_, ok := a.Caches().For(registry.CachePages).Get("services:en")
	assert.True(t, ok, "the shared load is cached after the first caller left")
}

func TestLoadPage_MaxConcurrency(t *testing.T) {
	f := newFakeFetcher()
	f.delay = 10 * time.Millisecond
	a := newTestAggregator(t, f, func(o *Options) { o.MaxConcurrency = 1 })

	pd, err := a.LoadPage(context.Background(), "contact", "en")
	require.NoError(t, err)

	assert.Len(t, pd.Meta.SucceededResources, 3)
	assert.Equal(t, int32(1), f.maxSeen.Load())
}

func TestLoadPage_DegradedTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFakeFetcher()
	f.fn = func(resource, locale string, call int) client.FetchResult {
		if resource == "homepage" {
			return client.FetchResult{ResourceName: resource, Error: "homepage: gateway error", Class: client.ErrorClassGateway}
		}
		return okResult(resource, locale)
	}
	a := newTestAggregator(t, f, func(o *Options) {
		o.DegradedTTL = time.Minute
		o.Clock = func() time.Time { return now }
	})

	pd, err := a.LoadPage(context.Background(), "homepage", "en")
	require.NoError(t, err)
	assert.True(t, pd.Meta.HasErrors)
	assert.Equal(t, now.Add(time.Minute), pd.Meta.CacheExpiresAt)

	entry, ok := a.Caches().For(registry.CacheHomepage).Lookup("homepage:en")
	require.True(t, ok)
	assert.Equal(t, time.Minute, entry.ExpiresAt.Sub(entry.StoredAt))
}

func TestLoadNavigation(t *testing.T) {
	f := newFakeFetcher()
	a := newTestAggregator(t, f, nil)

	pd, err := a.LoadNavigation(context.Background(), "ja-JP")
	require.NoError(t, err)

	assert.Equal(t, "ja", pd.Meta.Locale)
	assert.NotNil(t, pd.Resource("menus"))
	assert.Equal(t, 1, a.Caches().For(registry.CacheMenus).Len())
}

func TestLoadArticles(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetResponse("/api/articles", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data":[{"id":1},{"id":2}],"meta":{"pagination":{"page":2,"pageSize":2,"pageCount":5,"total":10}}}`,
	})

	c, err := client.New(client.DefaultConfig(mock.URL()), registry.Default())
	require.NoError(t, err)
	a := newTestAggregator(t, c, nil)
	ctx := context.Background()

	pd, err := a.LoadArticles(ctx, "en", ArticleQuery{Page: 2, PageSize: 2, Category: "press"})
	require.NoError(t, err)

	require.NotNil(t, pd.Pagination)
	assert.Equal(t, 5, pd.Pagination.PageCount)
	assert.JSONEq(t, `[{"id":1},{"id":2}]`, string(pd.Resource(ArticlesResource)))

	q := mock.LastRequest("/api/articles").URL.Query()
	assert.Equal(t, "2", q.Get("pagination[page]"))
	assert.Equal(t, "2", q.Get("pagination[pageSize]"))
	assert.Equal(t, "press", q.Get("filters[category][slug][$eq]"))
	assert.Equal(t, "en", q.Get("locale"))

	_, err = a.LoadArticles(ctx, "en", ArticleQuery{Page: 2, PageSize: 2, Category: "press"})
	require.NoError(t, err)
	_, err = a.LoadArticles(ctx, "en", ArticleQuery{Page: 3, PageSize: 2, Category: "press"})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.RequestCount("/api/articles"), "each distinct query is cached separately")
	assert.Equal(t, 2, a.Caches().For(registry.CacheNews).Len())
}

func TestArticleQuery_Params(t *testing.T) {
	tests := []struct {
		name     string
		q        ArticleQuery
		page     string
		pageSize string
	}{
		{name: "defaults", q: ArticleQuery{}, page: "1", pageSize: "10"},
		{name: "page size capped", q: ArticleQuery{Page: 3, PageSize: 1000}, page: "3", pageSize: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.q.Params()
			assert.Equal(t, tt.page, p.Get("pagination[page]"))
			assert.Equal(t, tt.pageSize, p.Get("pagination[pageSize]"))
			assert.Empty(t, p.Get("filters[category][slug][$eq]"))
		})
	}
}

func TestLoadArticleArchive(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetHandler("/api/articles", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("pagination[page]"))
		if page == 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body, _ := json.Marshal(map[string]any{
			"data": []map[string]int{{"id": page*10 + 1}, {"id": page*10 + 2}},
			"meta": map[string]any{"pagination": map[string]int{"page": page, "pageSize": 2, "pageCount": 4, "total": 8}},
		})
		w.Write(body)
	})

	c, err := client.New(client.DefaultConfig(mock.URL()), registry.Default())
	require.NoError(t, err)
	a := newTestAggregator(t, c, nil)

	pd, err := a.LoadArticleArchive(context.Background(), "en", "")
	require.NoError(t, err)

	var items []map[string]int
	require.NoError(t, pd.Decode(ArticlesResource, &items))
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it["id"]
	}
	assert.Equal(t, []int{11, 12, 21, 22, 41, 42}, ids)

	assert.True(t, pd.Meta.HasErrors)
	require.Len(t, pd.Meta.FailedResources, 1)
	assert.Contains(t, pd.Meta.FailedResources[0].Error, "[3]")
	assert.Equal(t, 4, pd.Pagination.PageCount)
}

func TestLoadArticleArchive_FirstPageFails(t *testing.T) {
	mock := testutil.NewMockCMS()
	defer mock.Close()
	mock.SetResponse("/api/articles", testutil.NewErrorResponse(http.StatusForbidden, "ForbiddenError", "Forbidden"))

	c, err := client.New(client.DefaultConfig(mock.URL()), registry.Default())
	require.NoError(t, err)
	a := newTestAggregator(t, c, nil)

	pd, err := a.LoadArticleArchive(context.Background(), "en", "press")
	require.NoError(t, err)

	assert.JSONEq(t, `[]`, string(pd.Resource(ArticlesResource)))
	require.Len(t, pd.Meta.FailedResources, 1)
	assert.Equal(t, string(client.ErrorClassAuth), pd.Meta.FailedResources[0].Class)
}

func TestWarm(t *testing.T) {
	f := newFakeFetcher()
	a := newTestAggregator(t, f, nil)

	results := a.Warm(context.Background(), []string{"en"})

	require.Len(t, results, 1+len(registry.DefaultPages()))
	assert.Equal(t, "navigation", results[0].PageID)
	assert.Equal(t, "homepage", results[1].PageID, "high priority pages warm first")
	for _, r := range results {
		assert.Empty(t, r.Error)
	}

	before := f.total()
	_, err := a.LoadPage(context.Background(), "careers", "en")
	require.NoError(t, err)
	assert.Equal(t, before, f.total(), "warmed pages are served from cache")
}

func TestWarm_StopsWhenCancelled(t *testing.T) {
	f := newFakeFetcher()
	a := newTestAggregator(t, f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, a.Warm(ctx, nil))
	assert.Equal(t, 0, f.total())
}

func TestCaches(t *testing.T) {
	c := NewCaches(DefaultCacheSettings())

	assert.Equal(t, registry.CacheNews, c.For(registry.CacheNews).Name())
	assert.Equal(t, registry.CachePages, c.For("unknown").Name())
	assert.ElementsMatch(t,
		[]string{registry.CacheHomepage, registry.CachePages, registry.CacheNews, registry.CacheMenus},
		c.Registry().Names())
}

func TestClearAll_Idempotent(t *testing.T) {
	f := newFakeFetcher()
	a := newTestAggregator(t, f, nil)
	a.Warm(context.Background(), []string{"en", "vi"})

	reg := a.Caches().Registry()
	reg.ClearAll()
	reg.ClearAll()

	for _, st := range reg.Status() {
		assert.Equal(t, 0, st.Size, st.Name)
	}
}
