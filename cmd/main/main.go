package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/ai"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/auth"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/content"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/retry"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/router"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/whatsapp"

	"github.com/gdbrns/go-whatsapp-session-bot/internal"
	ctlAdmin "github.com/gdbrns/go-whatsapp-session-bot/internal/admin"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/command"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
	ctlDevice "github.com/gdbrns/go-whatsapp-session-bot/internal/device"
	ctlIndex "github.com/gdbrns/go-whatsapp-session-bot/internal/index"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/numbers"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/otp"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/registry"
	ctlSettings "github.com/gdbrns/go-whatsapp-session-bot/internal/settings"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/store"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/supervisor"
	ctlUser "github.com/gdbrns/go-whatsapp-session-bot/internal/user"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/webhook"
)

func main() {
	started := time.Now()

	cfg, err := config.Load()
	if err != nil {
		log.Print(nil).Fatal("Invalid configuration: " + err.Error())
	}
	log.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Initialize Datastore
	db, err := store.Open(ctx, cfg.Datastore.Driver, cfg.Datastore.DSN)
	if err != nil {
		log.Print(nil).Fatal("Failed to open datastore: " + err.Error())
	}
	defer db.Close()

	if err := store.RunMigrations(db, cfg.Datastore.Driver); err != nil {
		log.Print(nil).Fatal("Failed to run migrations: " + err.Error())
	}
	sessions := store.New(db, cfg.Datastore.Driver, cfg.Defaults)

	container, err := whatsapp.NewDatastore(ctx, db, cfg.Datastore.Driver)
	if err != nil {
		log.Print(nil).Fatal("Failed to open device store: " + err.Error())
	}
	dialer := whatsapp.NewDialer(container, whatsapp.Options{
		ProxyURL:     cfg.ProxyURL,
		VersionMajor: cfg.ClientVersion[0],
		VersionMinor: cfg.ClientVersion[1],
		VersionPatch: cfg.ClientVersion[2],
	})
	versions := whatsapp.NewVersionRefresher(time.Hour)

	// Initialize Session Supervisor
	known := numbers.NewList(cfg.NumberListPath)
	admins := func() []string { return numbers.Admins(cfg.AdminListPath, cfg.OwnerNumbers) }
	conns := registry.New()
	events := webhook.NewEngine(cfg.Webhook)

	sup := supervisor.New(supervisor.Options{
		Timings:         cfg.Supervisor,
		BotName:         cfg.BotName,
		GroupInviteCode: cfg.GroupInviteCode,
		Admins:          admins,
		Dialer:          dialer,
		Store:           sessions,
		Registry:        conns,
		Numbers:         known,
		Events:          events,
	})
	gate := otp.New(cfg.OTPExpiry, sup, sessions, cfg.BotName).WithRetry(retry.Policy{
		Attempts: cfg.Supervisor.MaxRetries,
		Base:     time.Second,
	})

	// Initialize Command Dispatcher
	var generator command.Generator
	gemini, err := ai.New(ctx, ai.Options{
		APIKey:      cfg.Content.GeminiAPIKey,
		Model:       cfg.Content.GeminiModel,
		ImageModel:  cfg.Content.GeminiImageModel,
		Temperature: cfg.Content.Temperature,
	})
	switch {
	case err == nil:
		generator = gemini
	case errors.Is(err, ai.ErrDisabled):
		log.Print(nil).Info("GEMINI_API_KEY not set, AI commands disabled")
	default:
		log.SysErr("ai.init", err)
	}

	sup.SetHandler(command.New(command.Options{
		BotName:        cfg.BotName,
		Defaults:       cfg.Defaults,
		Admins:         admins,
		NewsletterJIDs: cfg.NewsletterJIDs,
		Retry:          retry.Policy{Attempts: cfg.Supervisor.MaxRetries, Base: time.Second},
		Configs:        sessions,
		Sessions:       sup,
		Registry:       conns,
		Numbers:        known,
		Content: content.New(content.Options{
			NewsBaseURL:   cfg.Content.NewsBaseURL,
			TikTokBaseURL: cfg.Content.TikTokBaseURL,
			NASAAPIKey:    cfg.Content.NASAAPIKey,
			Timeout:       cfg.Content.HTTPTimeout,
			Attempts:      cfg.Supervisor.MaxRetries,
			RetryBase:     cfg.Supervisor.PairingBackoff,
		}),
		AI:     generator,
		Events: events,
	}))

	// Intialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		ErrorHandler: router.HttpErrorHandler,
		BodyLimit:    router.BodyLimitBytes(),
	})

	// Request ID + panic recovery (structured JSON)
	app.Use(router.HttpRequestID())
	app.Use(router.RecoveryMiddleware())

	// Router Compression
	app.Use(compress.New(compress.Config{
		Level: compress.Level(router.GZipLevel),
	}))

	// Router CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: router.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Secret",
		AllowMethods: "GET,POST,DELETE",
	}))

	// Router Security
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	// Router RealIP + request context enrichment
	app.Use(router.HttpRealIP())

	// Router Default Handler
	app.Get("/favicon.ico", router.ResponseNoContent)

	// Load Internal Routes
	keys := auth.Keys{AdminSecret: cfg.AdminSecret, JWTSecret: cfg.JWTSecret}
	internal.Routes(app, internal.Controllers{
		Keys:     keys,
		Index:    ctlIndex.New(cfg.BotName, conns),
		Device:   ctlDevice.New(sup),
		Settings: ctlSettings.New(gate, conns, events),
		User:     ctlUser.New(conns),
		Admin: ctlAdmin.New(ctlAdmin.Options{
			Keys:     keys,
			Sessions: sup,
			Records:  sessions,
			Numbers:  known,
			Versions: versions,
			Started:  started,
		}),
	})

	// Running Startup Tasks
	go internal.Startup(context.Background(), sup)

	// Running Routines Tasks
	internal.Routines(c, cfg, internal.Jobs{
		Sweeper:  sup,
		Sessions: sup,
		OTP:      gate,
		Store:    sessions,
		Versions: versions,
	})

	// Start Server
	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Print(nil).Fatal(err.Error())
		}
	}()

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Try To Shutdown Server
	if err := app.ShutdownWithContext(ctxShutdown); err != nil {
		log.Print(nil).Error(err.Error())
	}

	// Try To Shutdown Cron, Sessions and Webhooks
	<-c.Stop().Done()
	sup.Shutdown()
	events.Shutdown()
}
