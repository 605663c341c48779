package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/noark5-client/internal/samples"
	"github.com/Sternrassler/noark5-client/pkg/cache"
	"github.com/Sternrassler/noark5-client/pkg/idp"
	"github.com/Sternrassler/noark5-client/pkg/logging"
	"github.com/Sternrassler/noark5-client/pkg/metrics"
	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/Sternrassler/noark5-client/pkg/session"
	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const appName = "noark sample"

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	if !cfg.noBanner {
		displayAppname(appName)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.logLevel)
	logCfg.Pretty = cfg.logPretty
	logger := logging.Setup(logCfg)

	if err := runSamples(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Samples failed")
		return err
	}
	logger.Info().Msg("Samples completed")
	return nil
}

func runSamples(ctx context.Context, cfg config, logger zerolog.Logger) error {
	if cfg.metricsAddr != "" {
		server := &http.Server{Addr: cfg.metricsAddr, Handler: newMux()}
		go listenAndServe(server, logger)
		defer shutdown(server, logger)
	}

	clientCfg := noark.DefaultConfig(cfg.addr)
	var store session.Store = session.NewMemoryStore()

	if cfg.redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.redisAddr, err)
		}
		logger.Info().Str("addr", cfg.redisAddr).Msg("Connected to Redis")

		clientCfg.CodeListCache = cache.NewManager(redisClient, cfg.cacheTTL)
		store = session.NewRedisStore(redisClient, cfg.clientID+":"+cfg.username, logging.NewLogger(logging.ComponentSession))
	}

	if cfg.cert != "" {
		cert, err := noark.LoadClientCertificate(cfg.cert, cfg.certPass)
		if err != nil {
			return err
		}
		clientCfg.ClientCertificate = cert
		logger.Info().Str("file", cfg.cert).Msg("Loaded client certificate")
	}

	client, err := noark.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create archive client: %w", err)
	}

	exchanger, err := idp.New(ctx, idp.Config{
		Address:      cfg.idpAddr,
		Issuer:       cfg.issuer,
		ClientID:     cfg.clientID,
		ClientSecret: cfg.clientSecret,
		Username:     cfg.username,
		Password:     cfg.password,
	})
	if err != nil {
		return fmt.Errorf("create identity provider client: %w", err)
	}

	manager, err := session.NewManager(client, exchanger, session.WithStore(store))
	if err != nil {
		return err
	}

	samplesCfg := samples.DefaultConfig(cfg.testDoc)
	samplesCfg.SeriesTitle = cfg.series
	samplesCfg.Since = cfg.since
	samplesCfg.Ambiguity = cfg.ambiguity
	samplesCfg.DownloadDir = cfg.downloadDir

	logger.Info().
		Str("addr", client.BaseURL()).
		Strs("samples", cfg.samples).
		Msg("Running samples")

	return samples.New(manager, samplesCfg).Run(ctx, cfg.samples)
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func listenAndServe(server *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", server.Addr).Msg("Metrics server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}

func shutdown(server *http.Server, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Metrics server shutdown")
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
