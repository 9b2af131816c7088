package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/01moynul/tg-storefront/internal/admin"
	"github.com/01moynul/tg-storefront/internal/ai"
	"github.com/01moynul/tg-storefront/internal/auth"
	"github.com/01moynul/tg-storefront/internal/bot"
	"github.com/01moynul/tg-storefront/internal/cart"
	"github.com/01moynul/tg-storefront/internal/catalog"
	"github.com/01moynul/tg-storefront/internal/checkout"
	"github.com/01moynul/tg-storefront/internal/config"
	"github.com/01moynul/tg-storefront/internal/database"
	"github.com/01moynul/tg-storefront/internal/handlers"
	"github.com/01moynul/tg-storefront/internal/logger"
	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/notify"
	"github.com/01moynul/tg-storefront/internal/orders"
	"github.com/01moynul/tg-storefront/internal/outbox"
	"github.com/01moynul/tg-storefront/internal/routes"
	"github.com/01moynul/tg-storefront/internal/settings"
	"github.com/01moynul/tg-storefront/internal/shop"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a transport token for the named bot (shop or admin) and exit")
	tokenTTL := flag.Duration("token-ttl", 0, "lifetime of the issued token, 0 for no expiry")
	hashPassphrase := flag.String("hash-passphrase", "", "print the bcrypt hash for OPERATOR_PASSPHRASE_HASH and exit")
	flag.Parse()

	// 0. --- One-Shot Helpers ---
	if *hashPassphrase != "" {
		hash, err := auth.HashPassphrase(*hashPassphrase)
		if err != nil {
			log.Fatalf("Failed to hash passphrase: %v", err)
		}
		fmt.Println(hash)
		return
	}

	// 1. --- Configuration & Logging ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *issueToken != "" {
		if *issueToken != bot.Shop && *issueToken != bot.Admin {
			log.Fatalf("Unknown bot %q, expected %s or %s", *issueToken, bot.Shop, bot.Admin)
		}
		token, err := auth.GenerateToken([]byte(cfg.JWTSecret), *issueToken, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	appLog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLog); err != nil {
		appLog.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLog *slog.Logger) error {
	// 2. --- Database Connection & Schema ---
	db, err := database.Open(ctx, database.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	if v, err := db.SchemaVersion(ctx); err == nil {
		appLog.Info("database ready", "driver", cfg.DBDriver, "schema", v.String())
	}

	// 3. --- Stores ---
	cat := catalog.New(db, cfg.PageSize, cfg.DefaultCurrency)
	carts := cart.New(db, cfg.DefaultCurrency)
	settingStore := settings.New(db)
	box := outbox.New(db)

	// 4. --- Notification Relay ---
	// Primary channel goes through the admin bot, fallback through the shop bot.
	var adminSender bot.Sender
	if cfg.AdminBotEnabled {
		adminSender = box.Notifications(bot.Admin, models.ChannelPrimary)
	}
	relay := notify.NewRelay(settingStore, adminSender, box.Notifications(bot.Shop, models.ChannelFallback),
		logger.Component(appLog, "notify"))

	ledger := orders.NewLedger(db, relay, logger.Component(appLog, "orders"))
	defer ledger.Wait()

	dialogue := checkout.New(carts, ledger, cfg.SessionTTL, cfg.MaxSessions, logger.Component(appLog, "checkout"))

	// 5. --- Bots ---
	shopHandler := shop.New(cat, carts, dialogue, ledger, cfg.WebAppURL, logger.Component(appLog, "shop"))
	dispatchers := map[string]*bot.Dispatcher{
		bot.Shop: bot.NewDispatcher(bot.Shop, shopHandler, box.For(bot.Shop),
			cfg.BotWorkers, cfg.BotQueueSize, logger.Component(appLog, "bot.shop")),
	}

	if cfg.AdminBotEnabled {
		var drafter admin.Drafter
		if cfg.GeminiAPIKey != "" {
			aiService, err := ai.NewAIService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cat, logger.Component(appLog, "ai"))
			if err != nil {
				return fmt.Errorf("failed to initialize AI service: %w", err)
			}
			defer aiService.Close()
			drafter = aiService
		}

		console := admin.New(cat, ledger, settingStore, drafter, admin.Config{
			PassphraseHash: cfg.OperatorPassphraseHash,
			RecentLimit:    cfg.RecentOrdersLimit,
		}, logger.Component(appLog, "admin"))

		dispatchers[bot.Admin] = bot.NewDispatcher(bot.Admin, console, box.For(bot.Admin),
			cfg.BotWorkers, cfg.BotQueueSize, logger.Component(appLog, "bot.admin"))
	}

	// 6. --- HTTP Transport ---
	app := &handlers.Handlers{
		Catalog:     cat,
		Outbox:      box,
		Dispatchers: dispatchers,
		Failover:    relay,
		JWTSecret:   []byte(cfg.JWTSecret),
		Log:         logger.Component(appLog, "http"),
	}
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes.SetupRouter(app, cfg.WebAppOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. --- Run Until Signalled ---
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range dispatchers {
		d := d
		g.Go(func() error { return d.Run(gctx) })
	}
	g.Go(func() error {
		appLog.Info("starting storefront API server", "addr", cfg.HTTPAddr, "admin_bot", cfg.AdminBotEnabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	appLog.Info("storefront shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
