package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	semarchconfig "github.com/c360studio/semarch/config"
	"github.com/c360studio/semarch/graph"
	archapi "github.com/c360studio/semarch/processor/arch-api"
	archoptimizer "github.com/c360studio/semarch/processor/arch-optimizer"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/componentregistry"
	"github.com/c360studio/semstreams/config"
	"github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/c360studio/semstreams/payloadbuiltins"
	"github.com/c360studio/semstreams/payloadregistry"
	"github.com/c360studio/semstreams/service"
	"github.com/c360studio/semstreams/types"
)

// serveOptions holds flags for the serve command.
type serveOptions struct {
	runtimeConfig string
	metricsAddr   string
}

func serveCmd(opts *globalOptions) *cobra.Command {
	sopts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the optimizer as a NATS-hosted processor",
		Long: `Serve connects to NATS, ensures the ARCHITECTURE and GRAPH streams,
and runs the arch-optimizer and arch-api processors under the semstreams
service manager.

Without --runtime-config a minimal runtime is built from the semarch
configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, sopts, logger)
		},
	}

	cmd.Flags().StringVar(&sopts.runtimeConfig, "runtime-config", "", "Semstreams runtime config file (JSON)")
	cmd.Flags().StringVar(&sopts.metricsAddr, "metrics-addr", ":9090", "Prometheus metrics listen address (empty disables)")

	return cmd
}

func serve(ctx context.Context, cfg *semarchconfig.Config, sopts *serveOptions, logger *slog.Logger) error {
	printBanner()

	runtimeCfg, err := loadRuntimeConfig(sopts.runtimeConfig, cfg)
	if err != nil {
		return fmt.Errorf("load runtime config: %w", err)
	}
	if err := runtimeCfg.Validate(); err != nil {
		return fmt.Errorf("invalid runtime configuration: %w", err)
	}

	natsClient, err := connectToNATS(ctx, runtimeCfg, logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(ctx)

	if err := ensureStreams(ctx, runtimeCfg, natsClient, logger); err != nil {
		return err
	}

	metricsRegistry := metric.NewMetricsRegistry()
	platform := extractPlatformMeta(runtimeCfg)

	configManager, err := config.NewConfigManager(runtimeCfg, natsClient, logger)
	if err != nil {
		return fmt.Errorf("create config manager: %w", err)
	}
	if err := configManager.Start(ctx); err != nil {
		return fmt.Errorf("start config manager: %w", err)
	}
	defer configManager.Stop(5 * time.Second)

	componentRegistry := component.NewRegistry()

	slog.Debug("Registering semstreams component factories")
	if err := componentregistry.Register(componentRegistry); err != nil {
		return fmt.Errorf("register semstreams components: %w", err)
	}

	slog.Debug("Registering semarch component factories")
	if err := archoptimizer.Register(componentRegistry); err != nil {
		return fmt.Errorf("register arch-optimizer: %w", err)
	}
	if err := archapi.Register(componentRegistry); err != nil {
		return fmt.Errorf("register arch-api: %w", err)
	}

	factories := componentRegistry.ListFactories()
	slog.Info("Component factories registered", "count", len(factories))

	payloadRegistry, err := buildPayloadRegistry()
	if err != nil {
		return err
	}

	serviceRegistry := service.NewServiceRegistry()
	if err := service.RegisterAll(serviceRegistry); err != nil {
		return fmt.Errorf("register services: %w", err)
	}

	manager := service.NewServiceManager(serviceRegistry)
	ensureServiceManagerConfig(runtimeCfg)

	svcDeps := &service.Dependencies{
		NATSClient:        natsClient,
		MetricsRegistry:   metricsRegistry,
		Logger:            logger,
		Platform:          platform,
		Manager:           configManager,
		ComponentRegistry: componentRegistry,
		PayloadRegistry:   payloadRegistry,
	}

	if err := configureAndCreateServices(runtimeCfg, manager, svcDeps); err != nil {
		return err
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if sopts.metricsAddr != "" {
		srv := startMetricsServer(sopts.metricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("Starting all services")
	if err := manager.StartAll(signalCtx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	slog.Info("Semarch ready", "version", Version, "org", platform.Org, "platform", platform.Platform)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := manager.StopAll(30 * time.Second); err != nil {
		slog.Error("Error stopping services", "error", err)
	}

	slog.Info("Semarch shutdown complete")
	return nil
}

// buildPayloadRegistry registers the semstreams payloads and then ours.
func buildPayloadRegistry() (*payloadregistry.Registry, error) {
	reg := payloadregistry.New()
	if err := payloadbuiltins.Register(reg); err != nil {
		return nil, fmt.Errorf("register semstreams payloads: %w", err)
	}
	if err := graph.RegisterPayloads(reg); err != nil {
		return nil, fmt.Errorf("register graph payloads: %w", err)
	}
	if err := archoptimizer.RegisterPayloads(reg); err != nil {
		return nil, fmt.Errorf("register arch-optimizer payloads: %w", err)
	}
	return reg, nil
}

func printBanner() {
	fmt.Fprintln(os.Stderr, "╔═══════════════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "║             Semarch v"+Version+"                     ║")
	fmt.Fprintln(os.Stderr, "║      Architecture Optimization Engine         ║")
	fmt.Fprintln(os.Stderr, "╚═══════════════════════════════════════════════╝")
}

// startMetricsServer exposes the default Prometheus registry, where the
// optimizer's collectors are registered.
func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", addr)
	return srv
}

func loadRuntimeConfig(path string, cfg *semarchconfig.Config) (*config.Config, error) {
	if path != "" {
		return loadConfigWithEnvSubstitution(path)
	}
	return buildRuntimeConfig(cfg)
}

// loadConfigWithEnvSubstitution reads a config file and expands environment
// variables before parsing. Supports ${VAR} and $VAR syntax.
func loadConfigWithEnvSubstitution(configPath string) (*config.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := config.ExpandEnvWithDefaults(string(data))

	loader := config.NewLoader()
	return loader.LoadFromBytes([]byte(expanded))
}

// buildRuntimeConfig derives the optimizer and API runtime from the semarch
// configuration.
func buildRuntimeConfig(cfg *semarchconfig.Config) (*config.Config, error) {
	optimizerCfg := archoptimizer.DefaultConfig()
	optimizerCfg.WeightsPath = cfg.Scoring.WeightsPath
	optimizerCfg.Search = cfg.Search
	optimizerCfg.Detection = cfg.Detection

	optimizerJSON, err := json.Marshal(optimizerCfg)
	if err != nil {
		return nil, fmt.Errorf("marshal arch-optimizer config: %w", err)
	}

	apiCfg := archapi.DefaultConfig()
	apiCfg.WeightsPath = cfg.Scoring.WeightsPath
	apiCfg.Detection = cfg.Detection

	apiJSON, err := json.Marshal(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("marshal arch-api config: %w", err)
	}

	natsURL := cfg.NATS.URL
	if natsURL == "" {
		natsURL = semarchconfig.DefaultConfig().NATS.URL
	}

	return &config.Config{
		Version: "1.0.0",
		Platform: config.PlatformConfig{
			Org:         "semarch",
			ID:          "semarch-local",
			Environment: "dev",
		},
		NATS: config.NATSConfig{
			URLs:          []string{natsURL},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			JetStream: config.JetStreamConfig{
				Enabled: true,
			},
		},
		Services: types.ServiceConfigs{},
		Components: config.ComponentConfigs{
			"arch-optimizer": types.ComponentConfig{
				Name:    "arch-optimizer",
				Type:    types.ComponentTypeProcessor,
				Enabled: true,
				Config:  optimizerJSON,
			},
			"arch-api": types.ComponentConfig{
				Name:    "arch-api",
				Type:    types.ComponentTypeProcessor,
				Enabled: true,
				Config:  apiJSON,
			},
		},
		Streams: config.StreamConfigs{
			optimizerCfg.StreamName: config.StreamConfig{
				Subjects: []string{"arch.optimize.>"},
				MaxAge:   "24h",
				Storage:  "file",
				Replicas: 1,
			},
			"GRAPH": config.StreamConfig{
				Subjects: []string{
					"graph.ingest.entity",
					"graph.export.>",
				},
				MaxAge:   "24h",
				Storage:  "memory",
				Replicas: 1,
			},
		},
	}, nil
}

func connectToNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*natsclient.Client, error) {
	natsURLs := "nats://localhost:4222"

	// Environment variable override takes precedence
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		natsURLs = envURL
	} else if envURL := os.Getenv("SEMARCH_NATS_URL"); envURL != "" {
		natsURLs = envURL
	} else if len(cfg.NATS.URLs) > 0 {
		natsURLs = strings.Join(cfg.NATS.URLs, ",")
	}

	logger.Info("Connecting to NATS", "url", natsURLs)

	client, err := natsclient.NewClient(natsURLs,
		natsclient.WithName("semarch"),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithCircuitBreakerThreshold(20),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, natsURLs)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, natsURLs)
	}

	logger.Info("Connected to NATS", "url", natsURLs)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker run -d -p 4222:4222 nats:latest -js

Or set NATS_URL environment variable to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

func ensureStreams(ctx context.Context, cfg *config.Config, natsClient *natsclient.Client, logger *slog.Logger) error {
	logger.Debug("Creating JetStream streams")
	streamsManager := config.NewStreamsManager(natsClient, logger)

	if err := streamsManager.EnsureStreams(ctx, cfg); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	logger.Debug("JetStream streams ready")
	return nil
}

func extractPlatformMeta(cfg *config.Config) types.PlatformMeta {
	platformID := cfg.Platform.InstanceID
	if platformID == "" {
		platformID = cfg.Platform.ID
	}

	return types.PlatformMeta{
		Org:      cfg.Platform.Org,
		Platform: platformID,
	}
}

// ensureServiceManagerConfig ensures service-manager config exists with defaults
func ensureServiceManagerConfig(cfg *config.Config) {
	if cfg.Services == nil {
		cfg.Services = make(types.ServiceConfigs)
	}

	if _, exists := cfg.Services["service-manager"]; exists {
		return
	}
	defaultConfig := map[string]any{
		"http_port":  8080,
		"swagger_ui": false,
		"server_info": map[string]string{
			"title":       "Semarch API",
			"description": "architecture optimization engine",
			"version":     Version,
		},
	}
	defaultConfigJSON, _ := json.Marshal(defaultConfig)
	cfg.Services["service-manager"] = types.ServiceConfig{
		Name:    "service-manager",
		Enabled: true,
		Config:  defaultConfigJSON,
	}
}

// configureAndCreateServices configures the manager and creates all services
func configureAndCreateServices(
	cfg *config.Config,
	manager *service.Manager,
	svcDeps *service.Dependencies,
) error {
	if err := manager.ConfigureFromServices(cfg.Services, svcDeps); err != nil {
		return fmt.Errorf("configure service manager: %w", err)
	}

	for name, svcConfig := range cfg.Services {
		if name == "service-manager" {
			continue
		}
		if !svcConfig.Enabled {
			slog.Info("Service disabled in config", "name", name)
			continue
		}
		if !manager.HasConstructor(name) {
			slog.Warn("Service configured but not registered", "key", name, "available_constructors", manager.ListConstructors())
			continue
		}
		if _, err := manager.CreateService(name, svcConfig.Config, svcDeps); err != nil {
			return fmt.Errorf("create service %s: %w", name, err)
		}
		slog.Info("Created service", "name", name)
	}

	return nil
}
