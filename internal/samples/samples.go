// Package samples contains end-to-end flows against an archive service:
// journaling, archive structure, board meetings, code-list maintenance and
// the eByggesak integration. Each sample obtains its client from the session
// first.
package samples

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/noark5-client/pkg/ebyggesak"
	"github.com/Sternrassler/noark5-client/pkg/logging"
	"github.com/rs/zerolog"
)

// Sample names accepted by Run.
const (
	SampleJournaling = "journaling"
	SampleArchive    = "archive"
	SampleMeeting    = "meeting"
	SampleCodeLists  = "codelists"
	SampleEByggesak  = "ebyggesak"
)

// All lists every sample in the order Run executes them by default.
var All = []string{SampleJournaling, SampleArchive, SampleMeeting, SampleCodeLists, SampleEByggesak}

// Config holds sample configuration.
type Config struct {
	// TestDoc is the file uploaded by the samples.
	TestDoc string

	// SeriesTitle is the series used by the eByggesak sample.
	SeriesTitle string

	// Since bounds the registry entries fetched back by the eByggesak sample.
	Since time.Duration

	// Ambiguity applies to eByggesak lookups.
	Ambiguity ebyggesak.AmbiguityPolicy

	// DownloadDir receives downloaded files. Empty uses the system temp dir.
	DownloadDir string
}

// DefaultConfig returns the sample defaults for testDoc.
func DefaultConfig(testDoc string) Config {
	return Config{
		TestDoc:     testDoc,
		SeriesTitle: "eByggesak",
		Since:       5 * 24 * time.Hour,
		Ambiguity:   ebyggesak.FirstMatch,
	}
}

// Runner executes samples.
type Runner struct {
	clients ebyggesak.ClientProvider
	config  Config
	logger  zerolog.Logger
}

// New creates a Runner.
func New(clients ebyggesak.ClientProvider, config Config) *Runner {
	return &Runner{
		clients: clients,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentSamples),
	}
}

// ParseNames splits a comma-separated sample list. "all" or an empty string
// selects every sample.
func ParseNames(s string) ([]string, error) {
	if s == "" || s == "all" {
		return All, nil
	}
	var names []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if !isSample(name) {
			return nil, fmt.Errorf("unknown sample %q (known: %s)", name, strings.Join(All, ", "))
		}
		names = append(names, name)
	}
	return names, nil
}

func isSample(name string) bool {
	for _, s := range All {
		if s == name {
			return true
		}
	}
	return false
}

// Run executes the named samples in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context, names []string) error {
	for _, name := range names {
		start := time.Now()
		r.logger.Info().Str("sample", name).Msg("Running sample")

		var err error
		switch name {
		case SampleJournaling:
			_, err = r.Journaling(ctx)
		case SampleArchive:
			_, err = r.Archive(ctx)
		case SampleMeeting:
			_, err = r.Meeting(ctx)
		case SampleCodeLists:
			_, err = r.CodeLists(ctx)
		case SampleEByggesak:
			_, err = r.EByggesak(ctx)
		default:
			err = fmt.Errorf("unknown sample %q", name)
		}
		if err != nil {
			return fmt.Errorf("%s sample: %w", name, err)
		}

		r.logger.Info().
			Str("sample", name).
			Dur("duration", time.Since(start)).
			Msg("Sample finished")
	}
	return nil
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
