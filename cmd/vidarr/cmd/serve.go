package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/vidarr/internal/batch"
	"github.com/jmylchreest/vidarr/internal/config"
	"github.com/jmylchreest/vidarr/internal/database"
	"github.com/jmylchreest/vidarr/internal/ffmpeg"
	internalhttp "github.com/jmylchreest/vidarr/internal/http"
	"github.com/jmylchreest/vidarr/internal/http/handlers"
	"github.com/jmylchreest/vidarr/internal/ingest"
	"github.com/jmylchreest/vidarr/internal/lock"
	"github.com/jmylchreest/vidarr/internal/observability"
	"github.com/jmylchreest/vidarr/internal/repository"
	"github.com/jmylchreest/vidarr/internal/streaming"
	"github.com/jmylchreest/vidarr/internal/transcode"
	"github.com/jmylchreest/vidarr/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vidarr server",
	Long: `Start the vidarr HTTP server and background conversion pipeline.

The server provides:
- Byte-range streaming of library files at /stream/{id}
- REST API for media files and conversion jobs
- Health check endpoint and Prometheus metrics
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("library", "", "Media library directory")
	serveCmd.Flags().Bool("convert", true, "Enable background conversion of legacy formats")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("library.dir", serveCmd.Flags().Lookup("library"))
	mustBindPFlag("convert.enabled", serveCmd.Flags().Lookup("convert"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	metrics := observability.NewMetrics()

	// Database
	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	jobRepo := repository.NewConversionJobRepository(db.DB)
	mediaRepo := repository.NewMediaFileRepository(db.DB)

	// FFmpeg binaries; configured paths win over PATH detection.
	detector := ffmpeg.NewBinaryDetector()
	binaries, err := detector.Resolve(cmd.Context(), cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath)
	if err != nil {
		return fmt.Errorf("locating ffmpeg: %w", err)
	}
	logger.Info("using ffmpeg",
		slog.String("path", binaries.FFmpegPath),
		slog.String("version", binaries.Version),
	)
	if binaries.FFprobePath == "" {
		logger.Warn("ffprobe not found; new files will stream without format analysis")
	}
	prober := ffmpeg.NewProber(binaries.FFprobePath)

	// Distributed locks; single-node deployments run without redis.
	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, logger)
		logger.Info("using redis locks", slog.String("addr", cfg.Redis.Addr))
	} else {
		locker = lock.NewLocalLocker()
		logger.Info("using in-process locks")
	}

	// Live transcode pool and streaming service
	pool := transcode.NewPool(
		cfg.Transcode.MaxSessions,
		cfg.Transcode.AcquireTimeout,
		cfg.Transcode.SessionTimeout,
		cfg.Transcode.SweepInterval,
		logger,
		metrics,
	)
	defer pool.Shutdown()

	streamService := streaming.NewService(pool, binaries.FFmpegPath, logger, metrics)

	// Batch conversion pipeline
	var runner batch.Runner
	switch cfg.Convert.Runner {
	case "http":
		runner = batch.NewHTTPRunner(cfg.Convert.RunnerURL, cfg.Convert.RunnerTimeout)
		logger.Info("using http job runner", slog.String("url", cfg.Convert.RunnerURL))
	default:
		execRunner := batch.NewExecRunner(binaries.FFmpegPath, logger)
		defer execRunner.Shutdown()
		runner = execRunner
		logger.Info("using in-process job runner")
	}

	enqueuer := batch.NewEnqueuer(jobRepo, cfg.Convert.Enabled, cfg.Convert.Preset, logger)
	stability := ingest.NewStabilityWatcher(cfg.Library.StabilityPollInterval, cfg.Library.StabilityMaxWait)
	ingestor := ingest.NewIngestor(mediaRepo, prober, stability, enqueuer, locker, cfg.Redis.LockTTL, logger)

	dispatcher := batch.NewDispatcher(jobRepo, runner, locker, cfg.Convert.MaxRunningJobs, cfg.Redis.LockTTL, logger, metrics)
	reconciler := batch.NewReconciler(jobRepo, mediaRepo, runner, locker, cfg.Redis.LockTTL, logger, metrics,
		func(ctx context.Context, outputPath string) {
			// Converted outputs re-enter the library through the same
			// ingestion path as newly copied files.
			if err := ingestor.HandleFileCreated(ctx, outputPath); err != nil {
				logger.Warn("failed to ingest conversion output",
					slog.String("path", outputPath),
					slog.String("error", err.Error()),
				)
			}
		})

	scheduler := batch.NewScheduler(dispatcher, reconciler, logger)
	if cfg.Convert.Enabled {
		if err := scheduler.Start(cmd.Context(), cfg.Convert.DispatchInterval, cfg.Convert.ReconcileInterval); err != nil {
			return fmt.Errorf("starting conversion scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	// HTTP server
	serverConfig := internalhttp.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = cfg.Server.ReadTimeout
	serverConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	healthHandler := handlers.NewHealthHandler(version.Version, db, pool)
	healthHandler.Register(server.API())

	mediaHandler := handlers.NewMediaHandler(mediaRepo, ingestor, logger)
	mediaHandler.Register(server.API())

	jobHandler := handlers.NewJobHandler(jobRepo)
	jobHandler.Register(server.API())

	streamHandler := handlers.NewStreamHandler(mediaRepo, streamService, logger)
	streamHandler.Register(server.Router())

	server.Router().Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	// Graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting vidarr server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("library", cfg.Library.Dir),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}
