package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/noark5-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultPageSize is the page size used for archive queries.
const DefaultPageSize = 50

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noark_pages_fetched_total",
		Help: "Total pages requested from the archive by collection",
	}, []string{"collection"})

	recordsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noark_records_fetched_total",
		Help: "Total records returned by paged archive queries by collection",
	}, []string{"collection"})
)

// Config holds fetcher configuration.
type Config struct {
	// PageSize is the limit sent with every page request and the offset step.
	PageSize int

	// Collection labels logs and metrics (usually the Noark object type).
	Collection string
}

// DefaultConfig returns the configuration used by the samples.
func DefaultConfig() Config {
	return Config{
		PageSize: DefaultPageSize,
	}
}

// Page is a single slice of a larger result set.
type Page[T any] struct {
	Items   []T
	HasMore bool
}

// PageFetcher fetches one page of results starting at offset.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, offset, limit int) (Page[T], error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc[T any] func(ctx context.Context, offset, limit int) (Page[T], error)

// FetchPage calls f.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, offset, limit int) (Page[T], error) {
	return f(ctx, offset, limit)
}

// Fetcher walks all pages of a PageFetcher in order.
type Fetcher[T any] struct {
	fetcher PageFetcher[T]
	config  Config
	logger  zerolog.Logger
}

// NewFetcher creates a new sequential fetcher.
func NewFetcher[T any](fetcher PageFetcher[T], config Config) *Fetcher[T] {
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.Collection == "" {
		config.Collection = "unknown"
	}

	return &Fetcher[T]{
		fetcher: fetcher,
		config:  config,
		logger: logging.NewLogger(logging.ComponentPagination).With().
			Str("collection", config.Collection).
			Logger(),
	}
}

// Each requests pages until one reports no more results, calling fn for every
// item in service order. It returns the number of pages requested.
func (f *Fetcher[T]) Each(ctx context.Context, fn func(T) error) (int, error) {
	start := time.Now()
	limit := f.config.PageSize
	offset := 0
	pages := 0
	records := 0

	for hasMore := true; hasMore; {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		f.logger.Debug().
			Int("offset", offset).
			Int("limit", limit).
			Msg("Fetching page")

		page, err := f.fetcher.FetchPage(ctx, offset, limit)
		if err != nil {
			return pages, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		pages++
		pagesFetchedTotal.WithLabelValues(f.config.Collection).Inc()
		recordsFetchedTotal.WithLabelValues(f.config.Collection).Add(float64(len(page.Items)))

		for _, item := range page.Items {
			if err := fn(item); err != nil {
				return pages, err
			}
		}
		records += len(page.Items)

		hasMore = page.HasMore
		offset += limit
	}

	f.logger.Debug().
		Int("pages", pages).
		Int("records", records).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return pages, nil
}

// FetchAll collects every item of every page.
func (f *Fetcher[T]) FetchAll(ctx context.Context) ([]T, error) {
	var all []T
	_, err := f.Each(ctx, func(item T) error {
		all = append(all, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}
