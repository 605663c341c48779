package noark

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/Sternrassler/noark5-client/pkg/pagination"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// SortOrder orders query results by a field.
type SortOrder struct {
	Field string `json:"field"`
	Order Order  `json:"order"`
}

// Query is a typed query for objects of type T. Filters use the service's
// query language with named parameters, e.g. "tittel=@title".
// A Query is a value builder; Execute does not mutate it.
type Query[T any, P EntityPtr[T]] struct {
	client    *Client
	filter    string
	params    map[string]string
	limit     int
	offset    int
	sortOrder []SortOrder
	publicUse *bool
}

// QueryResponse is one page of query results.
type QueryResponse[P any] struct {
	Results []P
	HasMore bool
}

type queryRequest struct {
	Type       string            `json:"type"`
	Query      string            `json:"query"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	SortOrder  []SortOrder       `json:"sortOrder,omitempty"`
	PublicUse  *bool             `json:"publicUse,omitempty"`
}

type queryResponse struct {
	HasMore bool         `json:"hasMore"`
	Results []wireObject `json:"results"`
}

// NewQuery creates a query for T. The type argument names the entity struct,
// e.g. NewQuery[Journalpost](c, "refMappe.id=@id", 50).
func NewQuery[T any, P EntityPtr[T]](c *Client, filter string, limit int) *Query[T, P] {
	return &Query[T, P]{
		client: c,
		filter: filter,
		params: make(map[string]string),
		limit:  limit,
	}
}

// AddParam binds a named query parameter. The name is given without '@'.
func (q *Query[T, P]) AddParam(name, value string) *Query[T, P] {
	q.params[name] = value
	return q
}

// SetOffset sets the number of results to skip.
func (q *Query[T, P]) SetOffset(offset int) *Query[T, P] {
	q.offset = offset
	return q
}

// SetLimit sets the maximum number of results returned.
func (q *Query[T, P]) SetLimit(limit int) *Query[T, P] {
	q.limit = limit
	return q
}

// AddSortOrder appends a sort criterion.
func (q *Query[T, P]) AddSortOrder(field string, order Order) *Query[T, P] {
	q.sortOrder = append(q.sortOrder, SortOrder{Field: field, Order: order})
	return q
}

// SetPublicUse chooses between the screened public variant of the results
// (true) and the unscreened one (false). Without it the service default
// applies.
func (q *Query[T, P]) SetPublicUse(publicUse bool) *Query[T, P] {
	q.publicUse = &publicUse
	return q
}

// Execute runs the query with its current offset and limit.
func (q *Query[T, P]) Execute(ctx context.Context) (*QueryResponse[P], error) {
	return q.execute(ctx, q.offset, q.limit)
}

// FetchPage runs the query at the given offset and limit, leaving the
// builder untouched. It lets a Query drive a pagination.Fetcher.
func (q *Query[T, P]) FetchPage(ctx context.Context, offset, limit int) (pagination.Page[P], error) {
	resp, err := q.execute(ctx, offset, limit)
	if err != nil {
		return pagination.Page[P]{}, err
	}
	return pagination.Page[P]{Items: resp.Results, HasMore: resp.HasMore}, nil
}

func (q *Query[T, P]) execute(ctx context.Context, offset, limit int) (*QueryResponse[P], error) {
	entityType := P(new(T)).EntityType()

	req := queryRequest{
		Type:       entityType,
		Query:      q.filter,
		Parameters: maps.Clone(q.params),
		Limit:      limit,
		Offset:     offset,
		SortOrder:  slices.Clone(q.sortOrder),
		PublicUse:  q.publicUse,
	}

	var raw queryResponse
	if err := q.client.postJSON(ctx, opQuery, "/query", req, &raw); err != nil {
		return nil, fmt.Errorf("query %s: %w", entityType, err)
	}

	results := make([]P, 0, len(raw.Results))
	for _, w := range raw.Results {
		v, err := decodeAs[T, P](w)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", entityType, err)
		}
		results = append(results, v)
	}

	q.client.logger.Debug().
		Str("type", entityType).
		Int("offset", offset).
		Int("limit", limit).
		Int("results", len(results)).
		Bool("has_more", raw.HasMore).
		Msg("Query executed")

	return &QueryResponse[P]{Results: results, HasMore: raw.HasMore}, nil
}
