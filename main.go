package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dav-apps/storyline-api/cache"
	"github.com/dav-apps/storyline-api/config"
	"github.com/dav-apps/storyline-api/driver/dav"
	"github.com/dav-apps/storyline-api/driver/storylinedb"
	"github.com/dav-apps/storyline-api/driver/summarizer"
	"github.com/dav-apps/storyline-api/driver/telegram"
	"github.com/dav-apps/storyline-api/feedparse"
	"github.com/dav-apps/storyline-api/handler"
	"github.com/dav-apps/storyline-api/ingestion"
	"github.com/dav-apps/storyline-api/logger"
	"github.com/dav-apps/storyline-api/notification"
	"github.com/dav-apps/storyline-api/pagemeta"
)

func main() {
	ctx := context.Background()
	log := logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "failed to load configuration", "error", err)
		os.Exit(1)
	}

	log.InfoContext(ctx, "configuration loaded",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"ingestionInterval", cfg.IngestionInterval.String(),
		"cachingDisabled", cfg.CachingDisabled,
	)

	pool, err := storylinedb.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.ConnectRedis(ctx, cfg.RedisURL, cfg.RedisDB)
	if err != nil {
		log.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	repo := storylinedb.NewRepository(pool, log)
	responseCache := cache.New(cache.NewRedisStore(redisClient), cfg.CachingDisabled, log)
	davClient := dav.NewClient(cfg.APIBaseURL(), log)
	summarizerClient := summarizer.NewClient(cfg.SummarizerURL, cfg.SummarizerAPIKey, cfg.SummarizerModel)
	parser := feedparse.NewParser()
	metadata := pagemeta.NewFetcher()

	var messenger notification.ChannelMessenger
	if cfg.TelegramBotToken != "" {
		messenger = telegram.NewClient(cfg.TelegramBotToken)
	}

	dispatcher := notification.NewDispatcher(repo, davClient, messenger,
		cfg.AppID, cfg.WebsiteBaseURL(), log)

	h := handler.New(repo, responseCache, davClient, summarizerClient, parser, metadata, cfg, log)

	scheduler := ingestion.NewScheduler(repo, repo, parser, metadata, dispatcher,
		responseCache, h.RefetchArticlePage, cfg.IngestionInterval, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	h.Register(e)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.InfoContext(groupCtx, "starting server", "port", cfg.Port)

		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	// The ingestion loop runs on deployed environments only. In development
	// the crawl is triggered manually against a local database.
	if cfg.Environment != config.EnvDevelopment {
		group.Go(func() error {
			log.InfoContext(groupCtx, "starting ingestion scheduler",
				"interval", cfg.IngestionInterval.String())

			return scheduler.Run(groupCtx)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return e.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "server exited", "error", err)
		os.Exit(1)
	}
}
