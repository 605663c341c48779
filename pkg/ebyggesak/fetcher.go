package ebyggesak

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/noark5-client/pkg/logging"
	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/Sternrassler/noark5-client/pkg/pagination"
	"github.com/rs/zerolog"
)

// Filters used by Fetcher.
const (
	entriesInSeriesFilter = "refMappe.refArkivdel.id=@seriesId && opprettetDato=[@from:@to]"
	externalIDParamPrefix = "regEntryId"
)

// AssociatedRecords are the registry entries of a series, each mapped to the
// external ids that reference it.
type AssociatedRecords struct {
	// Entries holds the registry entries in the order the service returned them.
	Entries []*noark.Journalpost

	// ByID indexes Entries by id.
	ByID map[string]*noark.Journalpost

	// ExternalIDs maps every entry in Entries to its external ids, in the
	// order they were returned. Entries without external ids map to an
	// empty slice.
	ExternalIDs map[*noark.Journalpost][]*noark.EksternId
}

func newAssociatedRecords() *AssociatedRecords {
	return &AssociatedRecords{
		ByID:        make(map[string]*noark.Journalpost),
		ExternalIDs: make(map[*noark.Journalpost][]*noark.EksternId),
	}
}

// Len returns the number of registry entries.
func (r *AssociatedRecords) Len() int {
	return len(r.Entries)
}

// Lookup returns the external ids of the entry with the given id.
func (r *AssociatedRecords) Lookup(id string) (*noark.Journalpost, []*noark.EksternId, bool) {
	entry, ok := r.ByID[id]
	if !ok {
		return nil, nil, false
	}
	return entry, r.ExternalIDs[entry], true
}

func (r *AssociatedRecords) add(entry *noark.Journalpost) bool {
	if _, dup := r.ByID[entry.ID]; dup {
		return false
	}
	r.Entries = append(r.Entries, entry)
	r.ByID[entry.ID] = entry
	r.ExternalIDs[entry] = []*noark.EksternId{}
	return true
}

// FetcherConfig holds Fetcher configuration.
type FetcherConfig struct {
	// PageSize is the limit of each page request (default: 50).
	PageSize int

	// Ambiguity decides what happens when several series share a title.
	Ambiguity AmbiguityPolicy

	// Now supplies the upper bound of the creation-date range (default: time.Now).
	Now func() time.Time
}

// DefaultFetcherConfig returns the default configuration.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		PageSize:  pagination.DefaultPageSize,
		Ambiguity: FirstMatch,
		Now:       time.Now,
	}
}

// Fetcher reads registry entries and their external ids from the archive.
type Fetcher struct {
	clients ClientProvider
	config  FetcherConfig
	logger  zerolog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(clients ClientProvider, config FetcherConfig) *Fetcher {
	if config.PageSize <= 0 {
		config.PageSize = pagination.DefaultPageSize
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Fetcher{
		clients: clients,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentEByggesak),
	}
}

// SearchForRegistryEntriesInSeries is FetchAssociatedRecords under the name
// used by the eByggesak integration.
func (f *Fetcher) SearchForRegistryEntriesInSeries(ctx context.Context, from time.Time, seriesTitle string) (*AssociatedRecords, error) {
	return f.FetchAssociatedRecords(ctx, seriesTitle, from)
}

// FetchAssociatedRecords returns every registry entry filed in the series
// titled seriesTitle and created between from and now, each with the
// external ids that reference it.
//
// Both result sets are read page by page until the service reports no more
// results. An unknown series yields an empty result. Any failed request
// aborts the whole fetch; no partial result is returned.
func (f *Fetcher) FetchAssociatedRecords(ctx context.Context, seriesTitle string, from time.Time) (*AssociatedRecords, error) {
	client, err := f.clients.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, err
	}

	series, err := findSeriesByTitle(ctx, client, seriesTitle, f.config.Ambiguity, f.logger)
	if err != nil {
		return nil, err
	}
	if series == nil {
		f.logger.Warn().Str("series", seriesTitle).Msg("Series not found")
		return newAssociatedRecords(), nil
	}

	records, err := f.fetchRegistryEntries(ctx, client, series.ID, from)
	if err != nil {
		return nil, err
	}
	if records.Len() == 0 {
		f.logger.Info().Str("series_id", series.ID).Msg("No registry entries in range")
		return records, nil
	}

	if err := f.fetchExternalIDs(ctx, client, records); err != nil {
		return nil, err
	}

	f.logger.Info().
		Str("series_id", series.ID).
		Int("entries", records.Len()).
		Msg("Fetched registry entries with external ids")

	return records, nil
}

func (f *Fetcher) fetchRegistryEntries(ctx context.Context, client *noark.Client, seriesID string, from time.Time) (*AssociatedRecords, error) {
	query := noark.NewQuery[noark.Journalpost](client, entriesInSeriesFilter, f.config.PageSize).
		AddParam("seriesId", seriesID).
		AddParam("from", from.Format(time.RFC3339Nano)).
		AddParam("to", f.config.Now().Format(time.RFC3339Nano))

	records := newAssociatedRecords()
	pages := pagination.NewFetcher[*noark.Journalpost](query, f.pageConfig("Journalpost"))
	_, err := pages.Each(ctx, func(entry *noark.Journalpost) error {
		if !records.add(entry) {
			f.logger.Debug().Str("id", entry.ID).Msg("Skipping registry entry returned twice")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch registry entries: %w", err)
	}
	return records, nil
}

func (f *Fetcher) fetchExternalIDs(ctx context.Context, client *noark.Client, records *AssociatedRecords) error {
	filter, params := externalIDsFilter(records.Entries)

	query := noark.NewQuery[noark.EksternId](client, filter, f.config.PageSize)
	for _, p := range params {
		query.AddParam(p[0], p[1])
	}

	pages := pagination.NewFetcher[*noark.EksternId](query, f.pageConfig("EksternId"))
	_, err := pages.Each(ctx, func(ext *noark.EksternId) error {
		entry, ok := records.ByID[ext.RefRegistrering]
		if !ok {
			f.logger.Warn().
				Str("external_id", ext.ID).
				Str("ref_registrering", ext.RefRegistrering).
				Msg("External id references an unknown registry entry")
			return nil
		}
		records.ExternalIDs[entry] = append(records.ExternalIDs[entry], ext)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fetch external ids: %w", err)
	}
	return nil
}

func (f *Fetcher) pageConfig(collection string) pagination.Config {
	return pagination.Config{PageSize: f.config.PageSize, Collection: collection}
}

// externalIDsFilter builds
// "refRegistrering.id=@regEntryId0 || refRegistrering.id=@regEntryId1 || ..."
// with one bound parameter per entry, in entry order.
func externalIDsFilter(entries []*noark.Journalpost) (string, [][2]string) {
	terms := make([]string, len(entries))
	params := make([][2]string, len(entries))
	for i, entry := range entries {
		name := fmt.Sprintf("%s%d", externalIDParamPrefix, i)
		terms[i] = "refRegistrering.id=@" + name
		params[i] = [2]string{name, entry.ID}
	}
	return strings.Join(terms, " || "), params
}
