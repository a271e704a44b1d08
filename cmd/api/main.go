package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"fittingroom/internal/domain"
	"fittingroom/internal/http/handlers"
	httpapi "fittingroom/internal/http/httpapi"
	"fittingroom/internal/imageref"
	"fittingroom/internal/infra"
	"fittingroom/internal/infra/geoip"
	"fittingroom/internal/metrics"
	imageprovider "fittingroom/internal/providers/image"
	"fittingroom/internal/providers/nanobanana"
	"fittingroom/internal/providers/openai"
	"fittingroom/internal/tryon"
)

const shutdownGrace = 15 * time.Second

func main() {
	// .env then .env.local, both optional
	_ = godotenv.Load(".env", ".env.local")

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer func() {
		_ = resolver.Close()
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("fittingroom", registry)

	generators := buildGenerators(cfg, &logger, collector)
	logger.Info().Interface("providers", generators.Providers()).Msg("generators ready")
	service := tryon.NewService(generators, collector, &logger)

	app := handlers.NewApp(cfg, &logger, service)
	router := httpapi.NewRouter(ctx, app, httpapi.RouterOptions{
		Metrics:       collector,
		CountryLookup: resolver.Lookup(),
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Msgf("API listening on %s", server.Addr())
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

func buildGenerators(cfg *infra.Config, logger *infra.Logger, collector *metrics.Collector) *imageprovider.Registry {
	openaiClient := openai.NewClient(openai.Options{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Model:        cfg.OpenAIModel,
		Organization: cfg.OpenAIOrg,
		Timeout:      cfg.OpenAITimeout,
		Logger:       logger,
	})

	logger.Info().
		Str("provider", string(domain.ProviderChatGPT)).
		Str("model", openaiClient.Model()).
		Bool("configured", cfg.OpenAIConfigured()).
		Msg("provider registered")

	nbClient := nanobanana.NewClient(nanobanana.Options{
		APIKey:     cfg.NanoBananaAPIKey,
		BaseURL:    cfg.NanoBananaBaseURL,
		Model:      cfg.NanoBananaModel,
		SubmitPath: cfg.NanoBananaSubmitPath,
		ResultPath: cfg.NanoBananaResultPath,
		Timeout:    cfg.NanoBananaTimeout,
		Logger:     logger,
	})
	logger.Info().
		Str("provider", string(domain.ProviderNanoBanana)).
		Str("model", nbClient.Model()).
		Bool("configured", cfg.NanoBananaConfigured()).
		Bool("fetch_remote", cfg.NanoBananaFetchRemote).
		Msg("provider registered")

	poller := nanobanana.NewPoller(nbClient, nanobanana.PollerOptions{
		Interval: cfg.NanoBananaPollInterval,
		Attempts: cfg.NanoBananaPollAttempts,
		Logger:   logger,
	})
	nbOpts := []imageprovider.NanoBananaOption{
		imageprovider.WithPollObserver(func(p domain.Provider, checks int) {
			collector.RecordPollChecks(string(p), checks)
		}),
	}
	if cfg.NanoBananaFetchRemote {
		nbOpts = append(nbOpts, imageprovider.WithReferenceResolver(imageref.NewFetcher(imageref.FetcherOptions{})))
	}

	return imageprovider.NewRegistry(
		imageprovider.NewOpenAIGenerator(openaiClient),
		imageprovider.NewNanoBananaGenerator(nbClient, poller, nbOpts...),
	)
}
