package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/auth"
	"github.com/linkmark/linkmark/internal/config"
	"github.com/linkmark/linkmark/internal/health"
	"github.com/linkmark/linkmark/internal/httpapi"
	"github.com/linkmark/linkmark/internal/logging"
	"github.com/linkmark/linkmark/internal/metadata"
	"github.com/linkmark/linkmark/internal/notify"
	"github.com/linkmark/linkmark/internal/pool"
	"github.com/linkmark/linkmark/internal/probe"
	"github.com/linkmark/linkmark/internal/repo"
	"github.com/linkmark/linkmark/internal/repo/memory"
	"github.com/linkmark/linkmark/internal/repo/postgres"
	"github.com/linkmark/linkmark/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		users      repo.UserStore
		bookmarks  repo.BookmarkStore
		categories repo.CategoryStore
		tags       repo.TagStore
		results    repo.ResultStore
		alertDB    repo.AlertStore
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()
		users, bookmarks, categories, tags, results, alertDB = pg, pg, pg, pg, pg, pg
	} else {
		mem := memory.New()
		users, bookmarks, categories, tags, results, alertDB = mem, mem, mem, mem, mem, mem
		logger.Warn("memory_store_active", zap.String("hint", "set DATABASE_URL for persistence"))
	}

	workers := pool.New(cfg.PoolCoreSize, cfg.PoolMaxSize, cfg.PoolQueueCap, cfg.QueueBlock)
	defer workers.Close()

	checker := probe.NewHTTPChecker(cfg.CheckTimeout)
	healthSvc := health.NewService(logger, bookmarks, results, checker, workers)

	trigger, err := scheduler.NewTrigger(logger, cfg.CheckCron, func() {
		healthSvc.CheckAll(context.Background())
	})
	if err != nil {
		log.Fatal(err)
	}
	trigger.Start()
	defer trigger.Stop()

	if slack := notify.NewSlack(cfg.SlackWebhook); slack != nil {
		alerter := scheduler.NewAlerter(logger, bookmarks, results, alertDB,
			notify.Multi{slack}, scheduler.AlerterConfig{
				AlertOnRecovery: cfg.AlertRecovered,
				Cooldown:        cfg.AlertCooldown,
				PollInterval:    cfg.AlertPoll,
			})
		go func() { _ = alerter.Run(ctx) }()
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt_secret_empty", zap.String("hint", "tokens are signed with an empty key"))
	}
	tokens := auth.NewTokenProvider(cfg.JWTSecret, cfg.TokenTTL)
	meta := metadata.NewFetcher(cfg.ScrapeTimeout, time.Hour)

	api := httpapi.NewServer(logger, users, bookmarks, categories, tags, healthSvc, tokens, meta)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.Router(cfg.PublicRPM, cfg.PublicBurst),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	logger.Info("api_stopped")
}
