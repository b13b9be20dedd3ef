package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vegasq/parqview/archive"
	"github.com/vegasq/parqview/internal/config"
	"github.com/vegasq/parqview/internal/logger"
	"github.com/vegasq/parqview/internal/server"
	"github.com/vegasq/parqview/query"
	"github.com/vegasq/parqview/store"
)

func newServeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the Parquet Viewer HTTP server.

Settings come from defaults, the --config file, PARQVIEW_* environment
variables (PARQVIEW_SERVER_ADDR, PARQVIEW_QUERY_ENGINE, ...) and flags, in
increasing order of precedence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":8000", "Listen address")
	flags.Int64("max-upload", 512<<20, "Maximum upload size in bytes")
	flags.String("upload-dir", "_uploads", "Directory uploads are archived to (local archive)")
	flags.String("archive", archive.BackendLocal, "Upload archive: local, s3, memory or none")
	flags.String("engine", query.EngineSQLite, "SQL engine: sqlite or native")
	flags.Int("max-rows", 0, "Maximum rows returned by a query (0 = unlimited)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-encoding", "json", "Log encoding (json or console)")
	flags.Bool("dev", false, "Development mode: console-friendly logs and gin debug output")
	flags.Bool("no-restore", false, "Do not restore the last archived upload on start")
	flags.Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	return cmd
}

func serve(cmd *cobra.Command, cfg *config.Config) error {
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Encoding:    cfg.Log.Encoding,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	arch, err := archive.New(ctx, cfg.ArchiveConfig())
	if err != nil {
		return fmt.Errorf("failed to open upload archive: %w", err)
	}
	engine, err := query.NewEngine(cfg.Query.Engine)
	if err != nil {
		return err
	}

	runner := query.NewRunner(engine,
		query.WithMaxRows(cfg.Query.MaxRows),
		query.WithLogger(log))

	srv, err := server.New(server.Options{
		Config:  cfg,
		Archive: arch,
		Store:   store.New(server.ArchiveReloader(arch)),
		Runner:  runner,
		Logger:  log,
		Version: version,
	})
	if err != nil {
		return err
	}

	if cfg.Upload.RestoreOnStart {
		if err := srv.Restore(ctx); err != nil {
			log.Warn("could not restore last upload", zap.Error(err))
		}
	}

	log.Info("starting parqview",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("engine", engine.Name()),
		zap.String("archive", arch.Name()))
	return srv.ListenAndServe(ctx)
}
