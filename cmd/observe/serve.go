package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/observe/internal/config"
	"github.com/vango-dev/observe/pkg/monitor"
	"github.com/vango-dev/observe/pkg/observable"
	"github.com/vango-dev/observe/pkg/server"
	"github.com/vango-dev/observe/pkg/snapshot"
)

// maxSnapshotSize bounds snapshots read from or written to a store.
const maxSnapshotSize = 16 << 20

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		noRestore  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured values",
		Long: `Serve the values declared in observe.json or observe.yaml.

Without --config the nearest configuration file in the working
directory or its parents is used.

Examples:
  observe serve
  observe serve --config=deploy/observe.yaml
  observe serve --addr=0.0.0.0:7070`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if noRestore {
				cfg.Snapshot.Restore = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, os.Stderr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&noRestore, "no-restore", false, "Skip restoring the snapshot at startup")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadFromWorkingDir()
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newMonitor chains the monitors enabled in cfg. The returned handler serves
// metrics and is nil when metrics are disabled.
func newMonitor(cfg *config.Config, logger *slog.Logger) (observable.Monitor, http.Handler) {
	var (
		monitors []observable.Monitor
		handler  http.Handler
	)

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		monitors = append(monitors, monitor.Prometheus(
			monitor.WithNamespace(cfg.Metrics.Namespace),
			monitor.WithRegistry(registry),
		))
		handler = monitor.Handler(registry)
	}
	if cfg.Tracing.Enabled {
		monitors = append(monitors, monitor.OpenTelemetry(
			monitor.WithTracerName(cfg.Tracing.TracerName),
		))
	}
	monitors = append(monitors, monitor.Log(logger))

	return monitor.Chain(monitors...), handler
}

// newSnapshotStore returns the configured store, or nil when snapshots are
// disabled.
func newSnapshotStore(cfg config.SnapshotConfig) (snapshot.Store, error) {
	switch {
	case cfg.Bucket != "":
		client := snapshot.NewS3Client(cfg.Region, cfg.Endpoint)
		return snapshot.NewS3Store(client, cfg.Bucket, cfg.Prefix, maxSnapshotSize), nil
	case cfg.Dir != "":
		return snapshot.NewDiskStore(cfg.Dir, maxSnapshotSize)
	}
	return nil, nil
}

func serverConfig(cfg *config.Config, metrics http.Handler, logger *slog.Logger) *server.Config {
	sc := server.DefaultConfig()
	sc.Address = cfg.Server.Addr
	sc.ReadTimeout = config.Duration(cfg.Server.ReadTimeout, sc.ReadTimeout)
	sc.WriteTimeout = config.Duration(cfg.Server.WriteTimeout, sc.WriteTimeout)
	sc.ShutdownTimeout = config.Duration(cfg.Server.ShutdownTimeout, sc.ShutdownTimeout)
	sc.WritesPerSecond = cfg.Server.WritesPerSecond
	sc.WriteBurst = cfg.Server.WriteBurst
	sc.MetricsPath = cfg.Metrics.Path
	sc.MetricsHandler = metrics
	sc.Logger = logger
	return sc
}

// runServe runs the realm and the binding server until ctx is done. The
// snapshot is restored before the server accepts requests and saved after
// it stops.
func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger := newLogger(cfg.Log, logOut)
	mon, metrics := newMonitor(cfg, logger)

	check, err := observable.ParseRealmCheckMode(cfg.Realm.Check)
	if err != nil {
		return err
	}
	realm := observable.NewRealm(
		observable.WithRealmName(cfg.Realm.Name),
		observable.WithRealmLogger(logger),
		observable.WithMonitor(mon),
		observable.WithRealmCheck(check),
		observable.WithQueueSize(cfg.Realm.QueueSize),
	)

	store, err := newSnapshotStore(cfg.Snapshot)
	if err != nil {
		return err
	}

	reg := server.NewRegistry(realm)
	srv := server.New(reg, serverConfig(cfg, metrics, logger))

	g, gctx := errgroup.WithContext(ctx)

	// The realm outlives ctx so the final snapshot can still read values.
	g.Go(func() error {
		return realm.Run(context.Background())
	})

	g.Go(func() error {
		defer realm.Close()

		var values *valueSet
		var buildErr error
		if err := realm.Sync(gctx, func() {
			values, buildErr = buildValues(cfg, reg, logger)
		}); err != nil {
			return err
		}
		if buildErr != nil {
			return buildErr
		}
		logger.Info("values ready", "count", len(reg.Names()))

		if store != nil && cfg.Snapshot.Restore {
			restoreSnapshot(gctx, store, cfg.Snapshot.Key, reg, logger)
		}

		serveErr := srv.Run(gctx)

		if store != nil {
			saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := snapshot.Save(saveCtx, store, cfg.Snapshot.Key, reg); err != nil {
				logger.Error("snapshot save failed", "error", err)
			} else {
				logger.Info("snapshot saved", "key", cfg.Snapshot.Key)
			}
			cancel()
		}

		_ = realm.Sync(context.Background(), values.dispose)
		return serveErr
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func restoreSnapshot(ctx context.Context, store snapshot.Store, key string, reg *server.Registry, logger *slog.Logger) {
	report, err := snapshot.Load(ctx, store, key, reg)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		logger.Info("no snapshot to restore", "key", key)
		return
	case err != nil:
		logger.Warn("snapshot restore failed", "key", key, "error", err)
		return
	}

	logger.Info("snapshot restored",
		"key", key,
		"restored", len(report.Restored),
		"skipped", len(report.Skipped),
	)
	for _, name := range report.Vetoed {
		logger.Warn("snapshot value vetoed", "value", name)
	}
	for name, err := range report.Failed {
		logger.Warn("snapshot value failed", "value", name, "error", err)
	}
}
