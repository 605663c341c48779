// Package pagination provides sequential offset/limit fetching for paged
// archive queries.
//
// The archive service answers a query with at most limit results and a
// hasMore flag. Offsets assume a stable result order, so pages are requested
// strictly one after another: the offset starts at 0 and advances by the page
// size after every page, whatever the page actually contained, until a page
// reports hasMore=false.
//
// Example usage:
//
//	query := noark.NewQuery[noark.Journalpost](client, "refMappe.id=@id", 50).
//		AddParam("id", caseFileID)
//	fetcher := pagination.NewFetcher[*noark.Journalpost](query, pagination.DefaultConfig())
//	entries, err := fetcher.FetchAll(ctx)
//
// Any page failure aborts the loop. The error keeps the original in its chain
// and no partial results are returned.
package pagination
