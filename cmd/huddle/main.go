package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/huddlehq/huddle/pkg/access"
	"github.com/huddlehq/huddle/pkg/api"
	"github.com/huddlehq/huddle/pkg/config"
	"github.com/huddlehq/huddle/pkg/events"
	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/storage"
	"github.com/huddlehq/huddle/pkg/storage/memory"
	"github.com/huddlehq/huddle/pkg/storage/postgres"
	"github.com/huddlehq/huddle/pkg/team"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "huddle: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		teamRepo     storage.TeamRepository
		orgRepo      storage.OrganizationRepository
		resourceRepo storage.ResourceRepository
		closeStore   func() error
	)
	switch cfg.Storage.Type {
	case "postgres":
		db, err := postgres.Open(cfg.Storage)
		if err != nil {
			return err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return err
		}
		store := postgres.NewStore(db, metrics)
		teamRepo, orgRepo, resourceRepo = store.Teams, store.Organizations, store.Resources
		closeStore = store.Close
		logger.Info("postgres storage ready")
	default:
		store := memory.NewStore()
		teamRepo, orgRepo, resourceRepo = store.Teams, store.Organizations, store.Resources
		closeStore = func() error { return nil }
		logger.Warn("using in-memory storage; state is not durable")
	}
	defer closeStore()

	var channel events.Channel
	if cfg.Events.RedisAddr != "" {
		redisChannel, err := events.NewRedisChannel(ctx,
			cfg.Events.RedisAddr, cfg.Events.RedisPassword, cfg.Events.RedisDB, cfg.Events.Channel)
		if err != nil {
			return err
		}
		defer redisChannel.Close()
		asyncChannel := events.NewAsyncChannel(ctx, redisChannel, 4, logger)
		defer asyncChannel.Close()
		channel = asyncChannel
		logger.WithField("channel", cfg.Events.Channel).Info("publishing events to redis")
	} else {
		channel = events.NewLogChannel(logger)
	}

	teamService := team.NewService(teamRepo, channel, logger, metrics)
	resolver := access.NewResolver(orgRepo, teamRepo, resourceRepo)

	server := api.NewServer(api.Deps{
		Teams:         teamService,
		TeamRepo:      teamRepo,
		Organizations: orgRepo,
		Resources:     resourceRepo,
		Resolver:      resolver,
		Logger:        logger,
		Metrics:       metrics,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	scheduler := cron.New()
	if cfg.Events.InvitationPurgeSchedule != "" {
		_, err := scheduler.AddFunc(cfg.Events.InvitationPurgeSchedule, func() {
			purgeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			purged, err := teamRepo.PurgeExpiredInvitations(purgeCtx, time.Now())
			if err != nil {
				logger.WithError(err).Warn("invitation purge failed")
				return
			}
			if purged > 0 {
				logger.WithField("purged", purged).Info("expired invitations purged")
			}
		})
		if err != nil {
			return fmt.Errorf("invalid invitation purge schedule: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
