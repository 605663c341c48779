package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sternrassler/noark5-client/internal/samples"
	"github.com/Sternrassler/noark5-client/pkg/ebyggesak"
)

// config is the command-line configuration. Every flag falls back to an
// environment variable.
type config struct {
	idpAddr      string
	issuer       string
	clientID     string
	clientSecret string
	username     string
	password     string

	addr     string
	cert     string
	certPass string

	testDoc     string
	downloadDir string
	samples     []string
	series      string
	since       time.Duration
	ambiguity   ebyggesak.AmbiguityPolicy

	redisAddr   string
	cacheTTL    time.Duration
	metricsAddr string

	logLevel  string
	logPretty bool
	noBanner  bool
}

func parseConfig(args []string, getenv func(string) string, output io.Writer) (config, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	var (
		cfg         config
		sampleNames string
		ambiguity   string
		since       string
		cacheTTL    string
	)

	fs := flag.NewFlagSet("noark-sample", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.idpAddr, "idpaddr", env("NOARK_IDP_ADDR", ""), "identity provider base URL")
	fs.StringVar(&cfg.issuer, "issuer", env("NOARK_IDP_ISSUER", ""), "OpenID Connect issuer for token endpoint discovery")
	fs.StringVar(&cfg.clientID, "clientid", env("NOARK_CLIENT_ID", ""), "OAuth2 client id")
	fs.StringVar(&cfg.clientSecret, "clientsecret", env("NOARK_CLIENT_SECRET", ""), "OAuth2 client secret")
	fs.StringVar(&cfg.username, "username", env("NOARK_USERNAME", ""), "archive user name")
	fs.StringVar(&cfg.password, "password", env("NOARK_PASSWORD", ""), "archive user password")
	fs.StringVar(&cfg.addr, "addr", env("NOARK_ADDR", ""), "archive server address")
	fs.StringVar(&cfg.cert, "cert", env("NOARK_CERT", ""), "client certificate (PKCS#12)")
	fs.StringVar(&cfg.certPass, "certpass", env("NOARK_CERT_PASS", ""), "client certificate password")
	fs.StringVar(&cfg.testDoc, "testdoc", env("NOARK_TEST_DOC", ""), "document uploaded by the samples")
	fs.StringVar(&cfg.downloadDir, "downloaddir", env("NOARK_DOWNLOAD_DIR", ""), "directory for downloaded files (default: system temp dir)")
	fs.StringVar(&sampleNames, "samples", env("NOARK_SAMPLES", "all"), "comma-separated samples to run ("+strings.Join(samples.All, ", ")+") or all")
	fs.StringVar(&cfg.series, "series", env("NOARK_SERIES", "eByggesak"), "series used by the eByggesak sample")
	fs.StringVar(&since, "since", env("NOARK_SINCE", "120h"), "how far back the eByggesak sample fetches registry entries")
	fs.StringVar(&ambiguity, "ambiguity", env("NOARK_AMBIGUITY", ebyggesak.FirstMatch.String()), "what to do when several objects match a lookup (first-match, fail)")
	fs.StringVar(&cfg.redisAddr, "redis", env("REDIS_URL", ""), "Redis address for the session store and code-list cache (optional)")
	fs.StringVar(&cacheTTL, "cache-ttl", env("NOARK_CACHE_TTL", "10m"), "code-list cache lifetime")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", env("METRICS_ADDR", ""), "serve /metrics and /health on this address (optional)")
	fs.StringVar(&cfg.logLevel, "log-level", env("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.logPretty, "log-pretty", env("LOG_PRETTY", "") == "true", "human-readable log output")
	fs.BoolVar(&cfg.noBanner, "no-banner", false, "don't print the banner")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	var err error
	if cfg.samples, err = samples.ParseNames(sampleNames); err != nil {
		return config{}, err
	}
	if cfg.ambiguity, err = ebyggesak.ParseAmbiguityPolicy(ambiguity); err != nil {
		return config{}, err
	}
	if cfg.since, err = time.ParseDuration(since); err != nil {
		return config{}, fmt.Errorf("invalid -since: %w", err)
	}
	if cfg.cacheTTL, err = time.ParseDuration(cacheTTL); err != nil {
		return config{}, fmt.Errorf("invalid -cache-ttl: %w", err)
	}

	return cfg, cfg.validate()
}

func (c config) validate() error {
	var missing []string
	if c.idpAddr == "" && c.issuer == "" {
		missing = append(missing, "-idpaddr or -issuer")
	}
	for _, f := range []struct{ name, value string }{
		{"-clientid", c.clientID},
		{"-username", c.username},
		{"-password", c.password},
		{"-addr", c.addr},
		{"-testdoc", c.testDoc},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required flags: " + strings.Join(missing, ", "))
	}
	return nil
}
