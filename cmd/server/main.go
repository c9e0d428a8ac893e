package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/propdeal/propdeal-server-go/internal/ai"
	"github.com/propdeal/propdeal-server-go/internal/cache"
	"github.com/propdeal/propdeal-server-go/internal/config"
	"github.com/propdeal/propdeal-server-go/internal/game"
	"github.com/propdeal/propdeal-server-go/internal/repository"
	"github.com/propdeal/propdeal-server-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting property deal server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("property deal server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	opts := server.Options{
		Seats:          server.NewSeatRegistry(cfg.Game.SeatTokenCost),
		DeckName:       cfg.Game.Deck,
		PublicURL:      cfg.Server.PublicURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Driver: ai.DriverConfig{
			Cooldown:     cfg.Game.AICooldown,
			RespondDelay: cfg.Game.AIRespondDelay,
		},
		Logger: logger,
	}

	if cfg.Database.Enabled() {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := repository.EnsureSchema(ctx, db); err != nil {
			return err
		}
		stats := db.Stat()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
		opts.Results = repository.NewGameRepository(db)
		opts.Decks = repository.NewDeckRepository(db)
	} else {
		logger.Warn("database not configured; results are not stored and the built-in deck is used")
	}

	if cfg.Redis.Enabled() {
		pool := cache.NewPool(cfg.Redis)
		defer pool.Close()
		snapshots := cache.NewSnapshotCache(pool, cfg.Redis.SnapshotTTL, logger)
		if err := snapshots.Ping(ctx); err != nil {
			return err
		}
		opts.Snapshots = snapshots
		logger.Info("snapshot cache initialized",
			zap.String("address", cfg.Redis.Address),
			zap.Duration("ttl", cfg.Redis.SnapshotTTL),
		)
	}

	if cfg.Game.AIScript != "" {
		proposer, err := ai.LoadLuaProposer(cfg.Game.AIScript, logger)
		if err != nil {
			return err
		}
		opts.Proposer = proposer
		logger.Info("scripted AI loaded", zap.String("script", cfg.Game.AIScript))
	} else {
		opts.Proposer = ai.NewHeuristicProposer()
	}

	recorder := game.NewReplayRecorder(logger, cfg.Game.ReplayDir)
	opts.Manager = game.NewManager(logger, recorder)
	hub := server.NewHub(opts)
	defer hub.Close()

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddress,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}
	grpcServer, health := server.NewGRPCServer(logger)

	var lis net.Listener
	if cfg.Server.GRPCAddress != "" {
		l, err := net.Listen("tcp", cfg.Server.GRPCAddress)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.GRPCAddress, err)
		}
		lis = l
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if lis != nil {
		g.Go(func() error {
			logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPCAddress))
			return grpcServer.Serve(lis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully...")
		health.SetServingStatus(server.GameService, healthpb.HealthCheckResponse_NOT_SERVING)
		health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
