package samples

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/noark5-client/pkg/ebyggesak"
)

// EByggesakResult holds the outcome of the eByggesak sample. Submitted is
// nil when the series does not exist.
type EByggesakResult struct {
	Submitted *ebyggesak.SubmitResult
	Records   *ebyggesak.AssociatedRecords
}

// EByggesak files the test document in the configured series, then fetches
// back every registry entry of the series created since Config.Since along
// with its external ids.
func (r *Runner) EByggesak(ctx context.Context) (*EByggesakResult, error) {
	submitted, err := ebyggesak.NewSubmitter(r.clients, r.config.Ambiguity).
		SubmitToDocumaster(ctx, ebyggesak.DefaultSubmitRequest(r.config.SeriesTitle, r.config.TestDoc))
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if submitted == nil {
		r.logger.Warn().Str("series", r.config.SeriesTitle).Msg("Series not found, nothing submitted")
	} else {
		r.logger.Info().
			Str("case_file", submitted.CaseFile.ID).
			Bool("case_file_created", submitted.CaseFileCreated).
			Str("registry_entry", submitted.RegistryEntry.ID).
			Msg("Submitted document")
	}

	config := ebyggesak.DefaultFetcherConfig()
	config.Ambiguity = r.config.Ambiguity
	from := time.Now().Add(-r.config.Since)

	records, err := ebyggesak.NewFetcher(r.clients, config).
		FetchAssociatedRecords(ctx, r.config.SeriesTitle, from)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	withExternal := 0
	for _, entry := range records.Entries {
		if len(records.ExternalIDs[entry]) > 0 {
			withExternal++
		}
	}
	r.logger.Info().
		Str("series", r.config.SeriesTitle).
		Time("from", from).
		Int("registry_entries", records.Len()).
		Int("with_external_ids", withExternal).
		Msg("Fetched associated records")

	return &EByggesakResult{Submitted: submitted, Records: records}, nil
}
