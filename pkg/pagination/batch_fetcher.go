// Package pagination provides parallel batch fetching for paginated content lists
package pagination

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// MaxPages caps how many pages are fetched, 0 means no cap
	MaxPages int
}

// DefaultConfig returns safe default configuration for the content API
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        10 * time.Second,
		MaxPages:       50,
	}
}

// PageFetcher fetches a single page of a list
type PageFetcher interface {
	// FetchPage returns the items of one page and the total page count
	FetchPage(ctx context.Context, pageNum int) (items [][]byte, pageCount int, err error)
}

// PageFetcherFunc adapts a function to PageFetcher
type PageFetcherFunc func(ctx context.Context, pageNum int) ([][]byte, int, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, pageNum int) ([][]byte, int, error) {
	return f(ctx, pageNum)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageNumber int
	Items      [][]byte
	Error      error
}

// Result is the outcome of FetchAll. Items are in page order.
type Result struct {
	Items      [][]byte
	PageCount  int
	Fetched    int
	FailedPage []int
}

// Partial reports whether some pages could not be fetched.
func (r Result) Partial() bool {
	return len(r.FailedPage) > 0
}

// BatchFetcher handles parallel fetching of the pages of one list
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches page 1, then the remaining pages in parallel using a
// worker pool. Failed pages are skipped and listed in Result.FailedPage;
// only a failure of page 1 is returned as an error.
func (bf *BatchFetcher) FetchAll(ctx context.Context) (Result, error) {
	start := time.Now()

	firstCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	firstItems, pageCount, err := bf.fetcher.FetchPage(firstCtx, 1)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch first page: %w", err)
	}

	totalPages := pageCount
	if totalPages < 1 {
		totalPages = 1
	}
	if bf.config.MaxPages > 0 && totalPages > bf.config.MaxPages {
		log.Warn().
			Int("page_count", pageCount).
			Int("max_pages", bf.config.MaxPages).
			Msg("Page count exceeds cap, truncating")
		totalPages = bf.config.MaxPages
	}

	// Single page optimization
	if totalPages == 1 {
		return Result{Items: firstItems, PageCount: pageCount, Fetched: 1}, nil
	}

	log.Debug().
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	byPage := make(map[int][][]byte, totalPages)
	byPage[1] = firstItems
	var failed []int

	pageQueue := make(chan int, totalPages)
	pageResults := make(chan PageResult, totalPages)

	for page := 2; page <= totalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	workers := bf.config.MaxConcurrency
	if workers > totalPages-1 {
		workers = totalPages - 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	for result := range pageResults {
		if result.Error != nil {
			log.Warn().
				Err(result.Error).
				Int("page", result.PageNumber).
				Msg("Page fetch failed")
			failed = append(failed, result.PageNumber)
			continue
		}
		byPage[result.PageNumber] = result.Items
	}

	// Pages never handed out because ctx was cancelled count as failed
	for page := 2; page <= totalPages; page++ {
		if _, ok := byPage[page]; !ok && !slices.Contains(failed, page) {
			failed = append(failed, page)
		}
	}

	slices.Sort(failed)
	res := Result{PageCount: pageCount, Fetched: len(byPage), FailedPage: failed}
	for page := 1; page <= totalPages; page++ {
		res.Items = append(res.Items, byPage[page]...)
	}

	log.Debug().
		Int("pages", res.Fetched).
		Int("total", totalPages).
		Int("items", len(res.Items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return res, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		items, _, err := bf.fetcher.FetchPage(pageCtx, pageNum)
		cancel()

		results <- PageResult{PageNumber: pageNum, Items: items, Error: err}
		pagesProcessed++
	}
}
