package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/telemetry"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/adapter/tcp"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/api"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/cache"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/compute"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/config"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/dispatch"
)

// serveOptions carries per-invocation overrides into runServer.
type serveOptions struct {
	// Host and Port replace the configured listen address when
	// OverrideListen is set (bare "computeserver <host> <port>" form).
	Host           string
	Port           int
	OverrideListen bool

	// PidFile, when non-empty, is written at startup and removed on exit.
	PidFile string
}

// statusSource adapts the dispatcher snapshot to the ops API.
type statusSource struct {
	dispatcher *dispatch.Dispatcher
}

func (s statusSource) Snapshot(ctx context.Context) (api.Snapshot, error) {
	st, err := s.dispatcher.Snapshot(ctx)
	if err != nil {
		return api.Snapshot{}, err
	}

	snap := api.Snapshot{
		StartedAt:         st.StartedAt,
		ActiveConnections: st.Clients,
		AuthorizedUsers:   st.Usernames,
		Cache:             st.Cache,
	}
	for _, task := range st.Tasks {
		snap.RunningTasks = append(snap.RunningTasks, api.TaskStatus{
			ID:       task.ID,
			Kind:     task.Kind,
			Username: task.Username,
			Remote:   task.Owner,
			State:    task.State,
			Chunks:   task.Chunks,
		})
	}
	return snap, nil
}

// runServer wires the full server stack and blocks until a shutdown signal
// arrives or a component fails.
func runServer(opts serveOptions) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if opts.OverrideListen {
		cfg.Server.Host = opts.Host
		cfg.Server.Port = opts.Port
	}

	if err := InitLogger(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "computeserver",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error", "error", err)
		}
	}()

	logger.Info("Starting computeserver",
		"version", Version,
		"config", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled",
			"endpoint", cfg.Telemetry.Endpoint,
			"sample_rate", cfg.Telemetry.SampleRate)
	}

	if opts.PidFile != "" {
		if err := os.WriteFile(opts.PidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer os.Remove(opts.PidFile)
	}

	// One registry for every subsystem, served at /metrics.
	registry := prometheus.NewRegistry()
	computeMetrics := compute.NewMetrics(registry)
	cacheMetrics := cache.NewMetrics(registry)
	dispatchMetrics := dispatch.NewMetrics(registry)
	transportMetrics := tcp.NewMetrics(registry)

	users, err := cfg.CreateUserStore()
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	if users.Len() == 0 {
		logger.Warn("No users configured, every login will be rejected",
			"hint", "computeserver user add <username>")
	}

	pool := compute.NewPool(compute.PoolConfig{
		Workers:   cfg.Compute.Workers,
		QueueSize: cfg.Compute.QueueSize,
	}, computeMetrics)
	pool.Start(ctx)
	defer pool.Stop(cfg.ShutdownTimeout)

	executor := compute.NewExecutor(pool, compute.Config{
		MaxChunks:    cfg.Compute.MaxChunks,
		MinChunkSize: cfg.Compute.MinChunkSize,
	}, computeMetrics)

	results := cache.New(cfg.Cache.MaxSize.Uint64(), cacheMetrics)

	dispatcher := dispatch.New(dispatch.Config{
		AllowListEnabled: cfg.AllowList.Enabled,
		AllowedAddresses: cfg.AllowList.Addresses,
	}, executor, results, users, dispatchMetrics)
	dispatcher.Start(ctx)
	defer dispatcher.Stop(cfg.ShutdownTimeout)

	transport := tcp.New(tcp.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		MaxConnections: cfg.Server.MaxConnections,
		MaxFrameSize:   uint32(cfg.Server.MaxFrameSize.Uint64()),
		Timeouts: tcp.TimeoutsConfig{
			Auth:     cfg.Server.Timeouts.Auth,
			Write:    cfg.Server.Timeouts.Write,
			Shutdown: cfg.ShutdownTimeout,
		},
	}, dispatcher, transportMetrics)

	apiDone := make(chan error, 1)
	if cfg.API.IsEnabled() {
		apiServer := api.NewServer(cfg.API, statusSource{dispatcher}, registry, Version)
		go func() {
			apiDone <- apiServer.Start(ctx)
		}()
		logger.Info("Management API enabled",
			"address", net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)))
	} else {
		logger.Info("Management API disabled")
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- transport.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.",
		"address", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		"workers", cfg.Compute.Workers,
		"max_connections", cfg.Server.MaxConnections)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received, stopping", "signal", sig.String())
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server failed", "error", err)
			return err
		}
		logger.Info("Server stopped")

	case err := <-apiDone:
		cancel()
		<-serverDone
		if err != nil {
			logger.Error("Management API failed", "error", err)
			return err
		}
	}

	return nil
}
