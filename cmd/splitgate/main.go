package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	discordadapter "github.com/akaul/splitgate/internal/adapter/driven/discord"
	splitwiseadapter "github.com/akaul/splitgate/internal/adapter/driven/splitwise"
	sqliteadapter "github.com/akaul/splitgate/internal/adapter/driven/sqlite"
	"github.com/akaul/splitgate/internal/adapter/driving/mcpserver"
	webhandler "github.com/akaul/splitgate/internal/adapter/driving/web"
	"github.com/akaul/splitgate/internal/application"
	"github.com/akaul/splitgate/internal/config"
	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

const version = "0.1.0"

const (
	splitwiseAuthURL  = "https://secure.splitwise.com/oauth/authorize"
	splitwiseTokenURL = "https://secure.splitwise.com/oauth/token"

	// Categories and currencies barely change; they get their own
	// long-lived cache separate from the balance-bearing reads.
	referenceCacheTTL = 12 * time.Hour
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"public_url", cfg.PublicURL,
		"tick_interval", cfg.TickInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire the driven adapters.
	grantStore, err := sqliteadapter.NewGrantRepo(db, cfg.SecretKey)
	if err != nil {
		return err
	}
	stateStore := sqliteadapter.NewAuthStateRepo(db)
	scheduleStore := sqliteadapter.NewScheduleRepo(db)

	clientFactory := splitwiseadapter.Factory(cfg.APIBaseURL)

	var notifier driven.Notifier
	if cfg.DiscordToken != "" {
		discordNotifier, err := discordadapter.NewNotifier(cfg.DiscordToken)
		if err != nil {
			return err
		}
		notifier = discordNotifier
		slog.Info("discord notifier configured")
	} else {
		notifier = discordadapter.LogNotifier{}
		slog.Info("no discord token configured, notifications will be logged only")
	}

	// 6. Build the OAuth configuration for the upstream provider.
	authURL := cfg.OAuthAuthURL
	if authURL == "" {
		authURL = splitwiseAuthURL
	}
	tokenURL := cfg.OAuthTokenURL
	if tokenURL == "" {
		tokenURL = splitwiseTokenURL
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ConsumerKey,
		ClientSecret: cfg.ConsumerSecret,
		RedirectURL:  cfg.PublicURL + "/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}

	// 7. Wire the application services.
	authSvc := application.NewAuthService(oauthCfg, stateStore, grantStore, clientFactory)
	summarySvc := application.NewSummaryService()
	notificationSvc := application.NewNotificationService(scheduleStore, notifier, application.JobConfig{
		ReminderInterval: cfg.ReminderInterval,
		Window:           model.WakingWindow{StartHour: cfg.WakingStartHour, EndHour: cfg.WakingEndHour},
		SummaryHour:      cfg.SummaryHour,
		SummaryMinute:    cfg.SummaryMinute,
	})

	cache := application.NewCache(cfg.CacheTTL, cfg.CacheServeStale)
	referenceCache := application.NewCache(referenceCacheTTL, cfg.CacheServeStale)
	go cache.Sweep(ctx, cfg.CacheTTL)
	go referenceCache.Sweep(ctx, referenceCacheTTL)

	// 8. Start the notification scheduler.
	scheduler := application.NewScheduler(scheduleStore, grantStore, notifier, clientFactory, summarySvc, cfg.TickInterval)
	go scheduler.Start(ctx)

	// 9. Mount the web flow and the MCP endpoint on one server.
	web := webhandler.NewHandler(authSvc, cfg.PublicURL, slog.Default())
	mcpSrv := mcpserver.New(version, authSvc, notificationSvc, cache, referenceCache, clientFactory, slog.Default())

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpSrv.Handler())
	mux.Handle("/", webhandler.NewServeMux(web, slog.Default()))

	// No read/write timeouts: the MCP endpoint holds streaming responses
	// open. ReadHeaderTimeout still guards against slow-header clients.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("splitgate started",
		"listen_addr", cfg.ListenAddr,
		"mcp_endpoint", cfg.PublicURL+"/mcp",
	)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
