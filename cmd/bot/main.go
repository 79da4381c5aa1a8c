package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	rcache "github.com/open-builders/reward-rush-bot/internal/cache/redis"
	"github.com/open-builders/reward-rush-bot/internal/bot"
	"github.com/open-builders/reward-rush-bot/internal/common/config"
	"github.com/open-builders/reward-rush-bot/internal/common/logger"
	apihttp "github.com/open-builders/reward-rush-bot/internal/http"
	"github.com/open-builders/reward-rush-bot/internal/platform/filestore"
	"github.com/open-builders/reward-rush-bot/internal/platform/jsonstore"
	rplatform "github.com/open-builders/reward-rush-bot/internal/platform/redis"
	"github.com/open-builders/reward-rush-bot/internal/platform/telegram"
	"github.com/open-builders/reward-rush-bot/internal/service/admin"
	"github.com/open-builders/reward-rush-bot/internal/service/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/service/membership"
	"github.com/open-builders/reward-rush-bot/internal/service/notifications"
	"github.com/open-builders/reward-rush-bot/internal/service/ratelimit"
	"github.com/open-builders/reward-rush-bot/internal/service/redemption"
	"github.com/open-builders/reward-rush-bot/internal/service/scheduler"
	"github.com/open-builders/reward-rush-bot/internal/workers"
)

const (
	// Telegram allows roughly 30 messages per second across chats.
	broadcastPerSecond = 25
	inviteLinkTTL      = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("reward-rush-bot", false)
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init("reward-rush-bot", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	base := logger.Base()

	store, err := jsonstore.Open(cfg.Storage.DataFile, base)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.DataFile).Msg("Failed to open data file")
	}
	files, err := filestore.New(cfg.Storage.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Storage.UploadDir).Msg("Failed to prepare upload dir")
	}
	logger.Info().Str("data_file", store.Path()).Str("upload_dir", files.Dir()).Msg("Storage ready")

	var (
		rdb         *rplatform.Client
		memberCache membership.Cache
		linkCache   membership.LinkCache
	)
	if cfg.Redis.Addr != "" {
		rdb, err = rplatform.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		memberCache = rcache.NewMembershipCache(rdb, cfg.Bot.MembershipCacheTTL)
		linkCache = rcache.NewInviteLinkCache(rdb, inviteLinkTTL)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Redis caches enabled")
	} else {
		logger.Info().Msg("Redis not configured, membership lookups are uncached")
	}

	tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.Debug, base)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Telegram client")
	}
	logger.Info().Str("username", tg.Username()).Msg("Authorized on Telegram")

	sched := scheduler.New(base)
	defer sched.Stop()

	tracker := ratelimit.NewTracker()
	notifier := notifications.NewService(tg, broadcastPerSecond, base)
	adminSvc := admin.NewService(store, cfg.Telegram.OwnerIDs, sched, files, base)
	gate := membership.NewGate(cfg.Channels(), tg, memberCache, linkCache, base)
	engine := redemption.NewEngine(store, tg, files, notifier, adminSvc, tracker, base)
	manager := giveaway.NewManager(store, sched, notifier, adminSvc, base)

	recovered, err := manager.Recover()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to recover giveaway timers")
	}
	logger.Info().Int("giveaways", recovered).Msg("Giveaway timers recovered")

	handler := bot.NewHandler(bot.Deps{
		Messenger: tg,
		Admin:     adminSvc,
		Engine:    engine,
		Giveaways: manager,
		Gate:      gate,
		Limits:    tracker,
		Notifier:  notifier,
		Files:     files,
	}, bot.Options{
		SupportContacts:      cfg.Telegram.SupportContacts,
		DefaultAccountPrefix: cfg.Bot.DefaultAccountPrefix,
		DefaultFilePrefix:    cfg.Bot.DefaultFilePrefix,
		SessionTimeout:       cfg.Bot.SessionTimeout,
	}, base)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := apihttp.NewRouter(cfg, apihttp.RouterDeps{
		Admin:     adminSvc,
		Giveaways: manager,
		Timers:    sched,
		Store:     store,
		Redis:     rdb,
	}, base)
	server := apihttp.NewServer(cfg.Server.Port, router, base)
	janitor := workers.NewSessionJanitor(handler.Sessions(), cfg.Bot.SessionSweepInterval, base)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return handler.Run(gctx, tg.Updates(gctx)) })
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return janitor.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Shutting down after error")
		sched.Stop()
		os.Exit(1)
	}
	logger.Info().Msg("Bot exited")
}
