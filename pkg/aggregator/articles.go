package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/cms-page-cache/pkg/cache"
	"github.com/Sternrassler/cms-page-cache/pkg/client"
	"github.com/Sternrassler/cms-page-cache/pkg/pagination"
	"github.com/Sternrassler/cms-page-cache/pkg/registry"
)

const (
	// ArticlesResource is the resource article lists are read from.
	ArticlesResource = "articles"

	DefaultArticlePageSize = 10
	MaxArticlePageSize     = 100
)

// ArticleQuery selects one page of the article list.
type ArticleQuery struct {
	Page     int
	PageSize int
	// Category filters by category slug when set.
	Category string
}

func (q ArticleQuery) normalized() ArticleQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultArticlePageSize
	}
	if q.PageSize > MaxArticlePageSize {
		q.PageSize = MaxArticlePageSize
	}
	return q
}

// Params returns the upstream query parameters for q.
func (q ArticleQuery) Params() url.Values {
	q = q.normalized()
	v := url.Values{}
	v.Set("pagination[page]", strconv.Itoa(q.Page))
	v.Set("pagination[pageSize]", strconv.Itoa(q.PageSize))
	v.Set("sort", "publishedAt:desc")
	if q.Category != "" {
		v.Set("filters[category][slug][$eq]", q.Category)
	}
	return v
}

// LoadArticles returns one page of articles in locale. Upstream pagination
// is kept on PageData.Pagination.
func (a *Aggregator) LoadArticles(ctx context.Context, rawLocale string, q ArticleQuery) (*PageData, error) {
	params := q.Params()
	store := a.caches.For(registry.CacheNews)

	return a.load(ctx, request{
		pageID:    "articles",
		label:     "articles",
		resources: []string{ArticlesResource},
		cache:     registry.CacheNews,
		duration:  store.TTL(),
		extra:     params,
		keyParts:  []string{cache.QueryKey(params)},
	}, rawLocale)
}

// LoadArticleArchive returns every article of category (all categories
// when empty) in locale, fetching the list pages in parallel. Pages that
// fail are left out and reported in Meta.FailedResources.
func (a *Aggregator) LoadArticleArchive(ctx context.Context, rawLocale, category string) (*PageData, error) {
	loc := a.locales.Normalize(rawLocale)
	store := a.caches.For(registry.CacheNews)
	key := cache.Key("articles-archive", loc, category)
	const label = "articles-archive"

	if pd, ok := store.Get(key); ok {
		PageLoads.WithLabelValues(label, OutcomeHit).Inc()
		return pd, nil
	}

	start := a.now()
	bf := pagination.NewBatchFetcher(a.articlePager(loc, category), a.pagination)
	res, err := bf.FetchAll(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		PageLoads.WithLabelValues(label, OutcomeFailed).Inc()
		return nil, fmt.Errorf("%w: %w", ErrAggregation, ctxErr)
	}

	pd := newPageData("articles-archive", loc, 1)
	switch {
	case err != nil:
		pd.Resources[ArticlesResource] = Fallback(ArticlesResource)
		pd.Meta.FailedResources = append(pd.Meta.FailedResources, failedFrom(err))
		a.logger.Warn().
			Err(err).
			Str("locale", loc).
			Str("category", category).
			Msg("Article archive failed, using fallback payload")
	default:
		pd.Resources[ArticlesResource] = joinArray(res.Items)
		pd.Pagination = &client.Pagination{
			Page:      1,
			PageSize:  len(res.Items),
			PageCount: res.PageCount,
			Total:     len(res.Items),
		}
		if res.Partial() {
			pd.Meta.FailedResources = append(pd.Meta.FailedResources, FailedResource{
				ResourceName: ArticlesResource,
				Error:        fmt.Sprintf("%s: pages %v failed", ArticlesResource, res.FailedPage),
				Class:        string(client.ErrorClassGeneric),
			})
		} else {
			pd.Meta.SucceededResources = append(pd.Meta.SucceededResources, ArticlesResource)
		}
	}

	return a.publish(pd, start, label, key, store.TTL(), store), nil
}

// articlePager adapts the fetcher to pagination.PageFetcher.
func (a *Aggregator) articlePager(loc, category string) pagination.PageFetcher {
	return pagination.PageFetcherFunc(func(ctx context.Context, pageNum int) ([][]byte, int, error) {
		q := ArticleQuery{Page: pageNum, PageSize: MaxArticlePageSize, Category: category}
		res := a.fetcher.Fetch(ctx, ArticlesResource, loc, q.Params())
		if !res.Succeeded {
			if res.Err != nil {
				return nil, 0, res.Err
			}
			return nil, 0, errors.New(res.Error)
		}

		var items []json.RawMessage
		if err := json.Unmarshal(res.Data, &items); err != nil {
			return nil, 0, &client.FetchError{
				Resource: ArticlesResource,
				Class:    client.ErrorClassDecode,
				Message:  "article list is not an array",
				Err:      err,
			}
		}

		pageCount := 1
		if res.Meta != nil && res.Meta.Pagination != nil {
			pageCount = res.Meta.Pagination.PageCount
		}

		out := make([][]byte, len(items))
		for i, item := range items {
			out[i] = item
		}
		return out, pageCount, nil
	})
}

// failedFrom converts a pager error to a FailedResource.
func failedFrom(err error) FailedResource {
	fr := FailedResource{ResourceName: ArticlesResource, Error: err.Error()}
	var fe *client.FetchError
	if errors.As(err, &fe) {
		fr.Class = string(fe.Class)
	}
	return fr
}

// joinArray encodes items as one JSON array.
func joinArray(items [][]byte) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(item)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
