package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hempex-matching/internal/common/config"
	"hempex-matching/internal/common/database"
	apperrors "hempex-matching/internal/common/errors"
	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/common/observability"
	"hempex-matching/internal/connector"
	"hempex-matching/internal/crawler"
	"hempex-matching/internal/flags"
	"hempex-matching/internal/matching"
	"hempex-matching/internal/ranking"
	"hempex-matching/pkg/registry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log := logger.NewStructured("info", "json")
	log.Info("Starting matching service", nil)

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	log = logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	obs := observability.New(cfg.App.Name)

	pg, err := initPostgres(cfg, log)
	if err != nil {
		log.Error("Failed to connect to PostgreSQL", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer pg.Close()

	es, err := initElasticsearch(cfg, log)
	if err != nil {
		log.Error("Failed to connect to Elasticsearch", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	rdb, err := initRedis(cfg, log)
	if err != nil {
		log.Error("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer rdb.Close()

	flagStore := flags.NewRedisStore(rdb.Client, cfg.Flags.KeyPrefix)
	flagService := flags.NewService(cfg.Flags.SafeMode, cfg.Flags.Defaults, flagStore, log)

	catalog, err := loadCatalog(cfg, log)
	if err != nil {
		log.Error("Failed to load connector catalog", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	reg := buildRegistry(cfg, catalog, pg, es, flagService, log)

	cache := crawler.NewResultCache(time.Duration(cfg.Crawler.CacheTTLMS) * time.Millisecond)
	crawl := crawler.New(&crawler.Config{
		Timeout:     time.Duration(cfg.Crawler.TimeoutMS) * time.Millisecond,
		CacheTTL:    time.Duration(cfg.Crawler.CacheTTLMS) * time.Millisecond,
		Concurrency: cfg.Crawler.Concurrency,
	}, reg, cache, log)

	var provider ranking.InterferenceProvider
	if cfg.Interference.BaseURL != "" {
		provider = ranking.NewHTTPInterferenceProvider(
			cfg.Interference.BaseURL,
			time.Duration(cfg.Interference.TimeoutMS)*time.Millisecond,
			log,
		)
	}
	ranker := ranking.NewRanker(flagService, provider, log)
	matcher := matching.NewService(log)

	srv := newServer(serverDeps{
		crawler:   crawl,
		ranker:    ranker,
		matcher:   matcher,
		catalog:   catalog,
		flags:     flagService,
		flagStore: flagStore,
		errors:    apperrors.NewErrorHandler(log),
		obs:       obs,
		logger:    log,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", srv.handleSearch)
	mux.HandleFunc("/api/matches", srv.handleMatches)
	mux.HandleFunc("/admin/flags/", srv.handleFlagOverride)
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("Shutdown signal received", map[string]interface{}{"signal": sig.String()})

	shutdownTimeout := time.Duration(cfg.HTTP.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	obs.Shutdown()
	log.Info("Matching service stopped", nil)
}

func initPostgres(cfg *config.Config, log logger.Logger) (*database.PostgresClient, error) {
	var pg *database.PostgresClient
	err := retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		return err
	}, 5, 2*time.Second, log, "PostgreSQL connection")
	return pg, err
}

func initElasticsearch(cfg *config.Config, log logger.Logger) (*database.ElasticsearchClient, error) {
	var es *database.ElasticsearchClient
	err := retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		return err
	}, 5, 2*time.Second, log, "Elasticsearch connection")
	return es, err
}

func initRedis(cfg *config.Config, log logger.Logger) (*database.RedisClient, error) {
	var rdb *database.RedisClient
	err := retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		return err
	}, 5, 2*time.Second, log, "Redis connection")
	return rdb, err
}

func loadCatalog(cfg *config.Config, log logger.Logger) (*registry.ConnectorCatalog, error) {
	var catalog *registry.ConnectorCatalog
	if cfg.Connectors.CatalogPath != "" {
		loaded, err := registry.LoadCatalog(cfg.Connectors.CatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = loaded
		log.Info("Loaded connector catalog", map[string]interface{}{
			"path":       cfg.Connectors.CatalogPath,
			"connectors": len(catalog.Connectors),
		})
	} else {
		catalog = registry.DefaultCatalog()
		log.Info("Using built-in connector catalog", map[string]interface{}{
			"connectors": len(catalog.Connectors),
		})
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// buildRegistry registers a connector for every catalog entry the deployment
// can actually serve. Experimental entries are consulted against their feature
// flag once at startup; suppliers without configured endpoints are skipped.
func buildRegistry(cfg *config.Config, catalog *registry.ConnectorCatalog, pg *database.PostgresClient, es *database.ElasticsearchClient, flagService *flags.Service, log logger.Logger) *connector.Registry {
	reg := connector.NewRegistry(log)
	ctx := context.Background()

	for _, def := range catalog.Connectors {
		if def.Experimental {
			if !flagService.Enabled(ctx, def.FlagName, flags.Subject{}) {
				log.Info("Skipping experimental connector", map[string]interface{}{"connector": def.ID})
				continue
			}
		}

		timeout := time.Duration(def.TimeoutMS) * time.Millisecond
		if def.TimeoutMS <= 0 {
			timeout = time.Duration(cfg.Crawler.TimeoutMS) * time.Millisecond
		}

		switch def.Category {
		case registry.CategoryDatabase:
			reg.Register(connector.NewInternalDB(pg.DB, log))
		case registry.CategorySearchIndex:
			reg.Register(connector.NewListingsIndex(es.Client, es.Index, log))
		case registry.CategorySupplier:
			sup, ok := cfg.Connectors.Suppliers[def.ID]
			if !ok || sup.BaseURL == "" {
				log.Warn("Supplier connector has no configured endpoint", map[string]interface{}{"connector": def.ID})
				continue
			}
			reg.Register(connector.NewSupplier(def.ID, sup.BaseURL, timeout, log))
		case registry.CategorySignal:
			sup, ok := cfg.Connectors.Suppliers[def.ID]
			if !ok || sup.BaseURL == "" {
				log.Warn("Signal connector has no configured endpoint", map[string]interface{}{"connector": def.ID})
				continue
			}
			reg.Register(connector.NewFieldSignals(sup.BaseURL, timeout, log))
		default:
			log.Warn("Unknown connector category in catalog", map[string]interface{}{
				"connector": def.ID,
				"category":  def.Category,
			})
		}
	}

	log.Info("Connector registry built", map[string]interface{}{"connectors": reg.Names()})
	return reg
}

func retryWithBackoff(operation func() error, maxRetries int, baseDelay time.Duration, log logger.Logger, description string) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := operation(); err != nil {
			lastErr = err
			delay := baseDelay * time.Duration(attempt)
			log.Warn("Operation failed, retrying", map[string]interface{}{
				"operation": description,
				"attempt":   attempt,
				"max":       maxRetries,
				"delay":     delay.String(),
				"error":     err.Error(),
			})
			time.Sleep(delay)
			continue
		}
		if attempt > 1 {
			log.Info("Operation succeeded after retry", map[string]interface{}{
				"operation": description,
				"attempt":   attempt,
			})
		}
		return nil
	}
	return fmt.Errorf("%s failed after %d attempts: %w", description, maxRetries, lastErr)
}
