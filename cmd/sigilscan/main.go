package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sigil-protocol/sigil-scan/internal/cache"
	"github.com/sigil-protocol/sigil-scan/internal/config"
	"github.com/sigil-protocol/sigil-scan/internal/logger"
	"github.com/sigil-protocol/sigil-scan/internal/scanner"
	"github.com/sigil-protocol/sigil-scan/internal/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("sigil-scan %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting sigil-scan",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	minSeverity, err := scanner.ParseSeverity(cfg.Scan.MinSeverity)
	if err != nil {
		log.Fatal("Invalid minimum severity", zap.Error(err))
	}

	sc := scanner.New(scanner.Options{
		RegistryURL:  cfg.Registry.URL,
		BundleTTL:    cfg.Registry.BundleTTL,
		FetchTimeout: cfg.Registry.FetchTimeout,
		Offline:      cfg.Registry.Offline,
		MinSeverity:  minSeverity,
	}, log.WithComponent("scanner").Logger)

	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		resultCache, err = cache.New(&cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			// A broken cache degrades to uncached scanning.
			log.Warn("Result cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer resultCache.Close()
		}
	}

	server.Version = version
	srv := server.New(cfg, log, sc, resultCache)

	if err := config.Watch(func(newCfg *config.Config) {
		log.Info("Configuration file changed; restart to apply",
			zap.Int("port", newCfg.Server.Port),
			zap.String("min_severity", newCfg.Scan.MinSeverity),
		)
	}); err != nil {
		log.Warn("Failed to watch configuration file", zap.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server.
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
