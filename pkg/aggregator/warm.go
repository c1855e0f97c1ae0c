package aggregator

import (
	"context"
	"time"
)

// WarmResult is the outcome of preloading one page in one locale.
type WarmResult struct {
	PageID    string        `json:"pageId"`
	Locale    string        `json:"locale"`
	HasErrors bool          `json:"hasErrors"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Warm preloads navigation and every registered page, highest priority
// first, for each of locales (all supported locales when empty). It stops
// early when ctx is done.
func (a *Aggregator) Warm(ctx context.Context, locales []string) []WarmResult {
	if len(locales) == 0 {
		locales = a.locales.Supported()
	}

	var results []WarmResult
	record := func(pageID, loc string, start time.Time, pd *PageData, err error) {
		r := WarmResult{PageID: pageID, Locale: loc, Duration: time.Since(start)}
		if err != nil {
			r.Error = err.Error()
		} else {
			r.HasErrors = pd.Meta.HasErrors
		}
		results = append(results, r)
	}

	for _, loc := range locales {
		if ctx.Err() != nil {
			return results
		}
		start := time.Now()
		pd, err := a.LoadNavigation(ctx, loc)
		record("navigation", loc, start, pd, err)
	}

	for _, page := range a.registry.Pages() {
		for _, loc := range locales {
			if ctx.Err() != nil {
				a.logger.Warn().Int("warmed", len(results)).Msg("Warm-up interrupted")
				return results
			}
			start := time.Now()
			pd, err := a.LoadPage(ctx, page.PageID, loc)
			record(page.PageID, loc, start, pd, err)
		}
	}

	a.logger.Info().
		Int("pages", len(results)).
		Strs("locales", locales).
		Msg("Cache warm-up complete")
	return results
}
