package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredjeanlab/dispatch/internal/config"
	"github.com/alfredjeanlab/dispatch/internal/events"
	"github.com/alfredjeanlab/dispatch/internal/hooks"
	"github.com/alfredjeanlab/dispatch/internal/server"
	"github.com/alfredjeanlab/dispatch/internal/store"
	"github.com/alfredjeanlab/dispatch/internal/store/memory"
	"github.com/alfredjeanlab/dispatch/internal/store/postgres"
	dpsync "github.com/alfredjeanlab/dispatch/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the dispatch HTTP and gRPC servers",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// The server does not need a client connection.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		var opts []config.Option
		if inMemory, _ := cmd.Flags().GetBool("in-memory"); inMemory {
			opts = append(opts, config.InMemory())
		}
		cfg, err := config.Load(opts...)
		if err != nil {
			return err
		}

		var st store.Store
		if cfg.InMemory {
			st = memory.New()
			logger.Warn("using in-memory store; data is lost on exit")
		} else {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			st = pg
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (DISPATCH_NATS_URL not set)")
		}

		dispatchServer := server.NewDispatchServer(st, publisher)
		dispatchServer.MaxBatchSize = cfg.MaxBatchSize
		grpcServer := server.NewGRPCServer(dispatchServer, cfg.AuthToken)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			st.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: dispatchServer.NewHTTPHandler(cfg.AuthToken),
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startSync(cfg, st, logger)
		hooksCancel := startHooks(cfg, st, dispatchServer, logger)

		logger.Info("dispatch server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"auth", cfg.AuthToken != "",
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if hooksCancel != nil {
			hooksCancel()
			logger.Info("hooks subscriber stopped")
		}
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// startSync starts the export scheduler when an interval and at least one
// destination are configured. It returns nil otherwise.
func startSync(cfg *config.Config, st store.Store, logger *slog.Logger) *dpsync.Scheduler {
	if cfg.SyncInterval <= 0 {
		return nil
	}
	var dests []dpsync.Destination
	if cfg.SyncS3Bucket != "" {
		s3Dest, err := dpsync.NewS3Destination(context.Background(),
			cfg.SyncS3Bucket,
			cfg.SyncS3Key,
			cfg.SyncS3Region,
			cfg.SyncS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync destination enabled", "dest", s3Dest.Name())
		}
	}
	if cfg.SyncGitRepo != "" {
		gitDest := dpsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
		dests = append(dests, gitDest)
		logger.Info("sync destination enabled", "dest", gitDest.Name())
	}
	if len(dests) == 0 {
		return nil
	}
	scheduler := dpsync.NewScheduler(st, dests, cfg.SyncInterval, logger)
	scheduler.Start()
	logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
	return scheduler
}

// configuredHooks returns the hooks set in cfg.
func configuredHooks(cfg *config.Config) []hooks.Hook {
	var hs []hooks.Hook
	if cfg.HookJourneyResumed != "" {
		hs = append(hs, hooks.Hook{Topic: events.TopicJourneyResumed, Command: cfg.HookJourneyResumed, Timeout: cfg.HookTimeout})
	}
	if cfg.HookBroadcastStatusChanged != "" {
		hs = append(hs, hooks.Hook{Topic: events.TopicBroadcastStatusChanged, Command: cfg.HookBroadcastStatusChanged, Timeout: cfg.HookTimeout})
	}
	return hs
}

// startHooks runs the configured hooks off NATS when it is available and
// off the server's in-process event stream otherwise. The returned cancel
// func stops the subscriber; it is nil when no hooks are configured.
func startHooks(cfg *config.Config, st store.Store, srv *server.DispatchServer, logger *slog.Logger) context.CancelFunc {
	hs := configuredHooks(cfg)
	if len(hs) == 0 {
		return nil
	}

	var sub events.Subscriber = srv.LocalSubscriber()
	if cfg.NATSURL != "" {
		natsSub, err := events.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to create hooks subscriber, using local events", "err", err)
		} else {
			sub = natsSub
		}
	}

	handler := hooks.NewHandler(st, hs, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := handler.StartSubscriber(ctx, sub); err != nil {
			logger.Error("hooks subscriber error", "err", err)
		}
		sub.Close()
	}()
	logger.Info("hooks subscriber started", "hooks", len(hs))
	return cancel
}

func init() {
	serveCmd.Flags().Bool("in-memory", false, "keep all data in memory instead of Postgres")
}
