package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cms-page-cache/pkg/aggregator"
	"github.com/Sternrassler/cms-page-cache/pkg/cache"
	"github.com/Sternrassler/cms-page-cache/pkg/client"
	"github.com/Sternrassler/cms-page-cache/pkg/logging"
	"github.com/Sternrassler/cms-page-cache/pkg/metrics"
	"github.com/Sternrassler/cms-page-cache/pkg/normalize"
)

// Handler serves page content and cache administration.
type Handler struct {
	agg        *aggregator.Aggregator
	normalizer *normalize.Normalizer
	logger     zerolog.Logger
	mux        *http.ServeMux
}

// NewHandler builds the HTTP routes over agg. A nil normalizer disables
// the /view and /summaries routes.
func NewHandler(agg *aggregator.Aggregator, normalizer *normalize.Normalizer) http.Handler {
	h := &Handler{
		agg:        agg,
		normalizer: normalizer,
		logger:     logging.NewLogger("http"),
		mux:        http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /health", h.health)
	h.mux.Handle("GET /metrics", metrics.Handler())

	h.mux.HandleFunc("GET /api/pages/{id}", h.page)
	h.mux.HandleFunc("GET /api/navigation", h.navigation)
	h.mux.HandleFunc("GET /api/articles", h.articles)
	if normalizer != nil {
		h.mux.HandleFunc("GET /api/pages/{id}/view", h.pageView)
		h.mux.HandleFunc("GET /api/articles/summaries", h.articleSummaries)
	}

	h.mux.HandleFunc("GET /api/cache", h.cacheStatus)
	h.mux.HandleFunc("DELETE /api/cache", h.clearCache)
	h.mux.HandleFunc("DELETE /api/cache/{name}", h.clearCache)
	h.mux.HandleFunc("POST /api/cache/warm", h.warm)

	return withRequestLog(h.logger, h.mux)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	pd, err := h.agg.LoadPage(r.Context(), r.PathValue("id"), r.URL.Query().Get("locale"))
	if err != nil {
		h.loadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pd)
}

func (h *Handler) navigation(w http.ResponseWriter, r *http.Request) {
	pd, err := h.agg.LoadNavigation(r.Context(), r.URL.Query().Get("locale"))
	if err != nil {
		h.loadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pd)
}

// pageViewResponse is the normalized form of a page.
type pageViewResponse struct {
	Page normalize.PageView `json:"page"`
	Meta aggregator.Meta    `json:"meta"`
}

func (h *Handler) pageView(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pd, err := h.agg.LoadPage(r.Context(), id, r.URL.Query().Get("locale"))
	if err != nil {
		h.loadError(w, r, err)
		return
	}

	cfg := h.agg.Registry().PageOrDefault(id)
	view, err := h.normalizer.Page(pd.Resource(cfg.Resources[0]))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pageViewResponse{Page: view, Meta: pd.Meta})
}

// loadArticles serves either one page of the list or, with all=true, the
// whole archive.
func (h *Handler) loadArticles(r *http.Request) (*aggregator.PageData, error) {
	q := r.URL.Query()
	loc := q.Get("locale")
	if all, _ := strconv.ParseBool(q.Get("all")); all {
		return h.agg.LoadArticleArchive(r.Context(), loc, q.Get("category"))
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	return h.agg.LoadArticles(r.Context(), loc, aggregator.ArticleQuery{
		Page:     page,
		PageSize: size,
		Category: q.Get("category"),
	})
}

func (h *Handler) articles(w http.ResponseWriter, r *http.Request) {
	pd, err := h.loadArticles(r)
	if err != nil {
		h.loadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pd)
}

// articleSummariesResponse is the normalized article list.
type articleSummariesResponse struct {
	Articles   []normalize.ArticleSummary `json:"articles"`
	Pagination *client.Pagination         `json:"pagination,omitempty"`
	Meta       aggregator.Meta            `json:"meta"`
}

func (h *Handler) articleSummaries(w http.ResponseWriter, r *http.Request) {
	pd, err := h.loadArticles(r)
	if err != nil {
		h.loadError(w, r, err)
		return
	}
	articles, err := h.normalizer.Articles(pd.Resource(aggregator.ArticlesResource))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, articleSummariesResponse{
		Articles:   articles,
		Pagination: pd.Pagination,
		Meta:       pd.Meta,
	})
}

// cacheStatus is one store in the admin status listing.
type cacheStatus struct {
	cache.Status
	TTLText    string `json:"ttl_text"`
	NextExpiry string `json:"next_expiry_text,omitempty"`
	Usage      string `json:"usage"`
}

func (h *Handler) cacheStatus(w http.ResponseWriter, _ *http.Request) {
	stores := h.agg.Caches().Registry().Status()
	out := make([]cacheStatus, 0, len(stores))
	total := 0
	for _, st := range stores {
		cs := cacheStatus{
			Status:  st,
			TTLText: st.TTL.String(),
			Usage:   humanize.Comma(int64(st.Size)) + " / " + humanize.Comma(int64(st.MaxEntries)),
		}
		if !st.NextExpiry.IsZero() {
			cs.NextExpiry = humanize.Time(st.NextExpiry)
		}
		total += st.Size
		out = append(out, cs)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"caches":        out,
		"total_entries": total,
	})
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		name = r.URL.Query().Get("type")
	}
	admin := h.agg.Caches().Registry()

	if name == "" {
		admin.ClearAll()
		writeJSON(w, http.StatusOK, map[string]any{"cleared": admin.Names()})
		return
	}
	if err := admin.ClearOne(name); err != nil {
		if errors.Is(err, cache.ErrUnknownCache) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": []string{name}})
}

func (h *Handler) warm(w http.ResponseWriter, r *http.Request) {
	var locales []string
	for _, l := range strings.Split(r.URL.Query().Get("locales"), ",") {
		if l = strings.TrimSpace(l); l != "" {
			locales = append(locales, l)
		}
	}
	results := h.agg.Warm(r.Context(), locales)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// loadError maps an aggregation failure to a response.
func (h *Handler) loadError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Page load failed")
	writeError(w, status, err.Error())
}

type errorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Timestamp: time.Now().UTC()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
