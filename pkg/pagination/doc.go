// Package pagination provides parallel batch fetching for paginated content lists.
//
// The content API reports the total page count in meta.pagination.pageCount.
// This package fetches page 1 to learn the count, then spreads the remaining
// pages over a small worker pool.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(pager, pagination.DefaultConfig())
//	result, err := fetcher.FetchAll(ctx)
//
// The batch fetcher:
//   - Fetches page 1 to determine the page count
//   - Caps the page count at Config.MaxPages
//   - Applies a per-page timeout
//   - Returns partial data, listing failed pages in Result.FailedPage
package pagination
