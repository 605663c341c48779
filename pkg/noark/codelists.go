package noark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/noark5-client/pkg/cache"
)

// CodeValue is a value of a code list, e.g. a document type.
type CodeValue struct {
	Code        string `json:"code"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Authority   string `json:"authority,omitempty"`
}

// CodeList is the set of allowed values for one field of one object type.
type CodeList struct {
	Type   string      `json:"type"`
	Field  string      `json:"field"`
	Values []CodeValue `json:"values"`
}

// Contains reports whether the list has a value with the given code.
func (l CodeList) Contains(code string) bool {
	for _, v := range l.Values {
		if v.Code == code {
			return true
		}
	}
	return false
}

// CodeListRef names a code list by object type and field.
type CodeListRef struct {
	Type  string
	Field string
}

// Code lists used by the samples and the eByggesak integration.
var (
	CodeListAdministrativEnhet = CodeListRef{Type: "Saksmappe", Field: "administrativEnhet"}
	CodeListSkjerming          = CodeListRef{Type: "Journalpost", Field: "skjerming"}
	CodeListDokumenttype       = CodeListRef{Type: "Dokument", Field: "dokumenttype"}
	CodeListJournalstatus      = CodeListRef{Type: "Journalpost", Field: "journalstatus"}
	CodeListMappetype          = CodeListRef{Type: "Mappe", Field: "mappetype"}
)

type codeListsRequest struct {
	Type  string `json:"type,omitempty"`
	Field string `json:"field,omitempty"`
}

type codeListsResponse struct {
	Results []CodeList `json:"results"`
}

// CodeLists returns the code lists matching entityType and field. Empty
// arguments widen the lookup; CodeLists(ctx, "", "") returns every list.
// With a configured cache, results are served from Redis until they expire
// or a value in them is changed through this client.
func (c *Client) CodeLists(ctx context.Context, entityType, field string) ([]CodeList, error) {
	key := cache.Key{Type: entityType, Field: field}

	if c.codeLists != nil {
		entry, err := c.codeLists.Get(ctx, key)
		switch {
		case err == nil:
			var cached codeListsResponse
			if err := json.Unmarshal(entry.Data, &cached); err == nil {
				c.logger.Debug().Str("key", key.String()).Msg("Code lists served from cache")
				return cached.Results, nil
			}
			c.logger.Warn().Str("key", key.String()).Msg("Discarding undecodable cached code lists")
		case errors.Is(err, cache.ErrCacheMiss):
		default:
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
	}

	var resp codeListsResponse
	if err := c.postJSON(ctx, opCodeLists, "/code-lists", codeListsRequest{Type: entityType, Field: field}, &resp); err != nil {
		return nil, fmt.Errorf("code lists %s.%s: %w", entityType, field, err)
	}

	if c.codeLists != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := c.codeLists.Set(ctx, key, cache.NewEntry(data, c.codeLists.TTL())); err != nil {
				c.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache code lists")
			}
		}
	}

	return resp.Results, nil
}

// CodeList returns the single code list for ref.
func (c *Client) CodeList(ctx context.Context, ref CodeListRef) (CodeList, error) {
	lists, err := c.CodeLists(ctx, ref.Type, ref.Field)
	if err != nil {
		return CodeList{}, err
	}
	for _, l := range lists {
		if l.Type == ref.Type && l.Field == ref.Field {
			return l, nil
		}
	}
	return CodeList{}, fmt.Errorf("%w: %s.%s", ErrCodeListNotFound, ref.Type, ref.Field)
}

// PutCodeListValue creates or updates a value in the code list ref and
// returns the stored value.
func (c *Client) PutCodeListValue(ctx context.Context, ref CodeListRef, value CodeValue) (*CodeValue, error) {
	if value.Code == "" {
		return nil, fmt.Errorf("put code value %s.%s: code is required", ref.Type, ref.Field)
	}

	var saved CodeValue
	if err := c.sendJSON(ctx, http.MethodPut, opPutCodeValue, codeListPath(ref), value, &saved); err != nil {
		return nil, fmt.Errorf("put code value %s.%s=%s: %w", ref.Type, ref.Field, value.Code, err)
	}
	c.invalidateCodeLists(ctx, ref)

	c.logger.Debug().
		Str("type", ref.Type).
		Str("field", ref.Field).
		Str("code", saved.Code).
		Msg("Code value stored")

	return &saved, nil
}

// DeleteCodeListValue removes the value with the given code from the code list ref.
func (c *Client) DeleteCodeListValue(ctx context.Context, ref CodeListRef, code string) error {
	path := codeListPath(ref) + "/" + url.PathEscape(code)
	if err := c.sendJSON(ctx, http.MethodDelete, opDeleteCodeValue, path, nil, nil); err != nil {
		return fmt.Errorf("delete code value %s.%s=%s: %w", ref.Type, ref.Field, code, err)
	}
	c.invalidateCodeLists(ctx, ref)
	return nil
}

func (c *Client) invalidateCodeLists(ctx context.Context, ref CodeListRef) {
	if c.codeLists == nil {
		return
	}
	if err := c.codeLists.Invalidate(ctx, cache.Key{Type: ref.Type, Field: ref.Field}); err != nil {
		c.logger.Warn().Err(err).Str("type", ref.Type).Str("field", ref.Field).Msg("Failed to invalidate code-list cache")
	}
}

func codeListPath(ref CodeListRef) string {
	return "/code-lists/" + url.PathEscape(ref.Type) + "/" + url.PathEscape(ref.Field)
}
