package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iurnickita/coursebot/internal/auth"
	"github.com/iurnickita/coursebot/internal/bot"
	"github.com/iurnickita/coursebot/internal/catalog"
	"github.com/iurnickita/coursebot/internal/config"
	"github.com/iurnickita/coursebot/internal/handler"
	"github.com/iurnickita/coursebot/internal/lock"
	"github.com/iurnickita/coursebot/internal/logger"
	"github.com/iurnickita/coursebot/internal/notify"
	"github.com/iurnickita/coursebot/internal/pricing"
	"github.com/iurnickita/coursebot/internal/service"
	"github.com/iurnickita/coursebot/internal/session"
	"github.com/iurnickita/coursebot/internal/store"
)

var errNothingToRun = errors.New("nothing to run: set TELEGRAM_BOT_TOKEN and/or ADMIN_JWT_SECRET")

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	if cfg.Bot.Token == "" && cfg.Handler.JWTSecret == "" {
		return errNothingToRun
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	catalog, err := catalog.Build(ctx, cfg.Catalog, cfg.Pricing.SinglePrice, zaplog)
	if err != nil {
		return err
	}

	locker, err := lock.NewLocker(cfg.Lock)
	if err != nil {
		return err
	}

	// Уведомления: Telegram и, если задан брокер, очередь событий
	var api *tgbotapi.BotAPI
	notifiers := []notify.Notifier{}
	if cfg.Bot.Token != "" {
		api, err = bot.NewAPI(cfg.Bot)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, notify.NewTelegram(api))
	}
	if cfg.Notify.AMQPURL != "" {
		amqp, err := notify.NewAMQP(cfg.Notify)
		if err != nil {
			return err
		}
		defer amqp.Close()
		notifiers = append(notifiers, amqp)
	}

	service, err := service.NewService(cfg.Service, service.Deps{
		Store:    store,
		Catalog:  catalog,
		Pricing:  pricing.New(cfg.Pricing, catalog),
		Sessions: session.NewManager(cfg.Service.SessionIdleTTL),
		Locker:   locker,
		Notifier: notify.Multi(notifiers...),
		Logger:   zaplog,
	})
	if err != nil {
		return err
	}

	adminAuth, err := auth.NewAuth(cfg.Handler)
	if errors.Is(err, auth.ErrNoSecret) {
		zaplog.Warn("ADMIN_JWT_SECRET is not set, admin API disabled")
		adminAuth = nil
	} else if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if adminAuth != nil {
		g.Go(func() error {
			return handler.Serve(ctx, cfg.Handler, adminAuth, service, zaplog)
		})
	}
	if api != nil {
		zaplog.Info("bot started", zap.String("username", api.Self.UserName))
		g.Go(func() error {
			return bot.NewBot(api, service, adminAuth, cfg.Pricing, zaplog).Run(ctx)
		})
	} else {
		zaplog.Warn("TELEGRAM_BOT_TOKEN is not set, bot disabled")
	}

	return g.Wait()
}
