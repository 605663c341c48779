// Package ebyggesak moves records between an eByggesak case-handling system
// and the archive. Submitter files a case file, registry entry and document
// into a series; Fetcher collects the registry entries created in a series
// together with the external ids that tie them back to eByggesak.
package ebyggesak

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/rs/zerolog"
)

// ExternalSystem is the external-system name recorded on EksternId objects.
const ExternalSystem = "eByggesak"

// ErrAmbiguousMatch is returned under FailOnAmbiguous when a lookup that
// should identify one object matches several.
var ErrAmbiguousMatch = errors.New("ambiguous match")

// AmbiguityPolicy decides what a lookup does when more than one object matches.
type AmbiguityPolicy int

const (
	// FirstMatch logs a warning and uses the first result.
	FirstMatch AmbiguityPolicy = iota

	// FailOnAmbiguous returns ErrAmbiguousMatch.
	FailOnAmbiguous
)

func (p AmbiguityPolicy) String() string {
	switch p {
	case FirstMatch:
		return "first-match"
	case FailOnAmbiguous:
		return "fail"
	default:
		return fmt.Sprintf("AmbiguityPolicy(%d)", int(p))
	}
}

// ParseAmbiguityPolicy parses "first-match" or "fail".
func ParseAmbiguityPolicy(s string) (AmbiguityPolicy, error) {
	switch s {
	case "", "first-match":
		return FirstMatch, nil
	case "fail":
		return FailOnAmbiguous, nil
	default:
		return FirstMatch, fmt.Errorf("unknown ambiguity policy %q", s)
	}
}

// ClientProvider hands out an archive client ready for use.
// *session.Manager implements it.
type ClientProvider interface {
	GetAuthenticatedClient(ctx context.Context) (*noark.Client, error)
}

// ClientProviderFunc adapts a function to ClientProvider.
type ClientProviderFunc func(ctx context.Context) (*noark.Client, error)

// GetAuthenticatedClient calls f.
func (f ClientProviderFunc) GetAuthenticatedClient(ctx context.Context) (*noark.Client, error) {
	return f(ctx)
}

// StaticClient returns a provider that always hands out c.
func StaticClient(c *noark.Client) ClientProvider {
	return ClientProviderFunc(func(context.Context) (*noark.Client, error) {
		return c, nil
	})
}

// lookupOne runs a limit-1 query and applies policy to the result.
// A miss returns nil and no error.
func lookupOne[T any, P noark.EntityPtr[T]](ctx context.Context, query *noark.Query[T, P], policy AmbiguityPolicy, logger zerolog.Logger, what string) (P, error) {
	resp, err := query.SetLimit(1).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", what, err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	if resp.HasMore {
		if policy == FailOnAmbiguous {
			return nil, fmt.Errorf("find %s: %w", what, ErrAmbiguousMatch)
		}
		logger.Warn().
			Str("lookup", what).
			Str("id", noark.IDOf(resp.Results[0])).
			Msg("Found more than one match, using the first")
	}
	return resp.Results[0], nil
}

// findSeriesByTitle resolves a series by its exact title.
func findSeriesByTitle(ctx context.Context, client *noark.Client, title string, policy AmbiguityPolicy, logger zerolog.Logger) (*noark.Arkivdel, error) {
	query := noark.NewQuery[noark.Arkivdel](client, "tittel=@title", 1).
		AddParam("title", title)
	return lookupOne(ctx, query, policy, logger, fmt.Sprintf("series with title %q", title))
}
