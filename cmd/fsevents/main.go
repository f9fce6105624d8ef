package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aevon-lab/fsevents/internal/aggregation"
	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
	corecfg "github.com/aevon-lab/fsevents/internal/core/config"
	"github.com/aevon-lab/fsevents/internal/core/storage"
	"github.com/aevon-lab/fsevents/internal/core/storage/postgres"
	"github.com/aevon-lab/fsevents/internal/ingestion"
	"github.com/aevon-lab/fsevents/internal/manager"
	"github.com/aevon-lab/fsevents/internal/migrations"
	"github.com/aevon-lab/fsevents/internal/projection"
	"github.com/aevon-lab/fsevents/internal/protocol"
	"github.com/aevon-lab/fsevents/internal/registry"
	"github.com/aevon-lab/fsevents/internal/server"
	"github.com/aevon-lab/fsevents/internal/transport"
)

func main() {
	configPath := flag.String("config", "fsevents.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	configureLogger(cfg.Log)
	slog.Info("Loaded config", "config", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Compile the wire protocol
	codec, err := protocol.NewCodec(ctx)
	if err != nil {
		slog.Error("Failed to compile protocol schema", "error", err)
		os.Exit(1)
	}

	// 3. Initialize the flush journal (PostgreSQL), if enabled
	var (
		journal      *postgres.Adapter
		journalStore storage.FlushStore
		flushJournal aggregation.FlushJournal
		healthCheck  server.HealthChecker
	)
	if cfg.Journal.Enabled {
		db, err := postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}

		if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}

		journal, err = postgres.NewAdapterFromDB(db)
		if err != nil {
			slog.Error("Failed to initialize flush journal", "error", err)
			os.Exit(1)
		}
		defer journal.Close()

		journalStore = journal
		flushJournal = journal
		healthCheck = journal
	} else {
		slog.Info("Flush journal disabled by config")
	}

	// 4. Initialize the provider connection, the engine and the manager
	var mgr *manager.Manager
	client := transport.NewClient(transport.Config{
		Address:                cfg.Transport.Address,
		DialTimeout:            cfg.Transport.DialTimeout,
		WriteTimeout:           cfg.Transport.WriteTimeout,
		ReconnectInterval:      cfg.Transport.ReconnectInterval,
		MaxFrameSize:           cfg.Transport.MaxFrameSize,
		RetryMaxAttempts:       cfg.Transport.RetryMaxAttempts,
		RetryInitialDelay:      cfg.Transport.RetryInitialDelay,
		RetryBackoffMultiplier: cfg.Transport.RetryBackoffMultiplier,
		BreakerThreshold:       cfg.Transport.BreakerThreshold,
		BreakerTimeout:         cfg.Transport.BreakerTimeout,
	}, func(ctx context.Context, frame []byte) {
		mgr.HandleFrame(ctx, frame)
	})

	dispatcher := aggregation.NewDispatcher(codec, client, flushJournal, cfg.Aggregation.DispatchBufferSize)
	engine := aggregation.NewEngine(registry.New(), dispatcher, aggregation.EngineOptions{
		PollResolution:    cfg.Aggregation.PollResolution,
		ChannelBufferSize: cfg.Aggregation.ChannelBufferSize,
	})
	mgr = manager.New(engine, codec)
	mgr.OnRemoteEvents(func(_ context.Context, batch protocol.RemoteEvents) {
		for _, e := range batch.Events {
			slog.Info("[Manager] Provider event",
				"subscription_id", batch.SubscriptionID,
				"type", e.Type,
				"file_uuid", e.FileUUID)
		}
	})

	// 5. Start background services
	var engineWG, dispatcherWG, transportWG sync.WaitGroup

	engineWG.Add(1)
	go func() {
		defer engineWG.Done()
		if err := engine.Start(ctx); err != nil {
			slog.Error("Engine stopped with error", "error", err)
		}
	}()

	dispatcherWG.Add(1)
	go func() {
		defer dispatcherWG.Done()
		if err := dispatcher.Run(ctx); err != nil {
			slog.Error("Dispatcher stopped with error", "error", err)
		}
	}()

	transportWG.Add(1)
	go func() {
		defer transportWG.Done()
		if err := client.Run(ctx); err != nil {
			slog.Error("Transport stopped with error", "error", err)
		}
	}()

	// 6. Register static subscriptions
	if cfg.Aggregation.SubscriptionsDir != "" {
		repo, err := coreagg.NewFileSystemSubscriptionRepository(cfg.Aggregation.SubscriptionsDir)
		if err != nil {
			slog.Error("Failed to load static subscriptions", "dir", cfg.Aggregation.SubscriptionsDir, "error", err)
			os.Exit(1)
		}
		n, err := mgr.RegisterStatic(ctx, repo)
		if err != nil {
			slog.Error("Failed to register static subscriptions", "error", err)
			os.Exit(1)
		}
		slog.Info("Static subscriptions registered", "count", n, "dir", cfg.Aggregation.SubscriptionsDir)
	}

	// Signal handler -> triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// 7. Admin HTTP server blocks until ctx is cancelled.
	if cfg.Server.Enabled {
		srv := server.New(cfg.Server.Addr(), cfg.Server.Mode, healthCheck, client)
		srv.ReportQueue(dispatcher)
		ingestion.NewService(mgr, cfg.Server.MaxBodySizeMB).RegisterRoutes(srv.Engine)
		projection.NewService(journalStore).RegisterRoutes(srv.Engine)

		if err := srv.Run(ctx); err != nil {
			slog.Error("Server stopped with error", "error", err)
			cancel()
		}
	}
	<-ctx.Done()

	// The engine flushes pending aggregates into the dispatcher, which must
	// deliver them before the connection is closed.
	engineWG.Wait()
	dispatcher.Close()
	dispatcherWG.Wait()
	transportWG.Wait()
	if err := client.Close(); err != nil {
		slog.Warn("Failed to close transport", "error", err)
	}

	slog.Info("Shutdown complete")
}

func configureLogger(cfg corecfg.LogConfig) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
