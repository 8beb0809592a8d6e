package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/soportek/atalaya/internal/api"
	"github.com/soportek/atalaya/internal/cache"
	"github.com/soportek/atalaya/internal/config"
	"github.com/soportek/atalaya/internal/dashboards"
	"github.com/soportek/atalaya/internal/logging"
	"github.com/soportek/atalaya/internal/metrics"
	"github.com/soportek/atalaya/pkg/prtg"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "atalaya",
	Short:   "Atalaya - tenant dashboards over a PRTG monitoring backend",
	Long:    `Atalaya ingests sensor telemetry from a PRTG-style monitoring backend and serves per-tenant dashboards for virtualization hosts, backups, network gear, Windows servers, and remote branches`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Atalaya %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// reloadableGateway swaps the backend client when the config watcher reports
// a new subgroup list.
type reloadableGateway struct {
	mu     sync.RWMutex
	client *prtg.Client
}

func (g *reloadableGateway) current() *prtg.Client {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.client
}

func (g *reloadableGateway) swap(client *prtg.Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.client = client
}

func (g *reloadableGateway) SensorsForTenant(ctx context.Context, probe string) ([]prtg.Sensor, error) {
	return g.current().SensorsForTenant(ctx, probe)
}

func (g *reloadableGateway) Channels(ctx context.Context, sensorID int) ([]prtg.Channel, error) {
	return g.current().Channels(ctx, sensorID)
}

func (g *reloadableGateway) SensorDetail(ctx context.Context, sensorID int) (*prtg.SensorDetail, error) {
	return g.current().SensorDetail(ctx, sensorID)
}

func newClient(cfg *config.Config, store *cache.Store) (*prtg.Client, error) {
	return prtg.NewClient(prtg.ClientConfig{
		BaseURL:     cfg.BackendURL,
		Token:       cfg.Token,
		VerifySSL:   cfg.VerifySSL,
		Fingerprint: cfg.Fingerprint,
		Subgroups:   cfg.Subgroups,
		Timeout:     cfg.RequestTimeout,
		Cache:       store,
		CacheTTL:    cfg.CacheTTL,
		OnRequest:   metrics.ObserveBackendRequest,
	})
}

func runServer() {
	// baseline logger for early startup messages
	logging.Init(logging.Config{Format: "auto", Level: "info", Component: "atalaya"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "atalaya",
	})

	store := cache.New()
	client, err := newClient(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create monitoring backend client")
	}
	gateway := &reloadableGateway{client: client}

	if cfg.ConfigPath != "" {
		watcher, err := config.NewWatcher(cfg.ConfigPath, func(next *config.Config) {
			nextClient, err := newClient(next, store)
			if err != nil {
				log.Warn().Err(err).Msg("Reloaded config produced no usable client, keeping previous one")
				return
			}
			gateway.swap(nextClient)
		})
		if err != nil {
			log.Warn().Err(err).Msg("Config watcher unavailable")
		} else if err := watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Config watcher failed to start")
		} else {
			defer watcher.Stop()
		}
	}

	service := dashboards.New(gateway, store, cache.NewSideTable())

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Metrics listening")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				log.Warn().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewRouter(service),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // builds can chain several fan-outs
	}

	go func() {
		log.Info().
			Str("addr", cfg.ListenAddr).
			Strs("subgroups", cfg.Subgroups).
			Msg("Atalaya listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
