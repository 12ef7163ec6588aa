// Command wwwmin serves a small personal website with a contact form, an
// admin dashboard and webhook-driven self-upgrade.
//
// Usage:
//
//	wwwmin [serve]
//	wwwmin adduser <username>
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/aidaco/wwwmin/internal/adapter/driven/github"
	mailadapter "github.com/aidaco/wwwmin/internal/adapter/driven/mail"
	processadapter "github.com/aidaco/wwwmin/internal/adapter/driven/process"
	sqliteadapter "github.com/aidaco/wwwmin/internal/adapter/driven/sqlite"
	webpushadapter "github.com/aidaco/wwwmin/internal/adapter/driven/webpush"
	httphandler "github.com/aidaco/wwwmin/internal/adapter/driving/http"
	"github.com/aidaco/wwwmin/internal/adapter/driving/session"
	webhandler "github.com/aidaco/wwwmin/internal/adapter/driving/web"
	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/config"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
	"github.com/aidaco/wwwmin/internal/metrics"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		return serve(ctx, cfg, logger)
	case "adduser":
		return addUser(ctx, cfg, args, logger)
	default:
		return fmt.Errorf("unknown command %q (want serve or adduser)", command)
	}
}

func newAuthenticator(cfg *config.Config, users driven.UserStore, logger *slog.Logger) *application.Authenticator {
	hasher := application.NewPasswordHasher(application.DefaultArgon2Params(), cfg.HashPermits)
	tokens := application.NewTokenCodec([]byte(cfg.JWTSecret), cfg.TokenTTL)
	return application.NewAuthenticator(users, hasher, tokens, logger)
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"upgrade_enabled", cfg.Upgrade.Enabled,
		"email_enabled", cfg.Email.Enabled,
		"push_enabled", cfg.Push.Enabled,
		"hours_enabled", cfg.Hours.Enabled,
	)

	// 3. Open database (dual reader/writer with WAL mode) and migrate.
	db, err := sqliteadapter.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	logger.Info("database opened", "path", cfg.DBPath)

	content, err := webhandler.LoadContent(cfg.ContentFile)
	if err != nil {
		return err
	}

	// 4. Wire stores and metrics.
	userStore := sqliteadapter.NewUserRepo(db)
	submissionStore := sqliteadapter.NewSubmissionRepo(db)
	linkStore := sqliteadapter.NewLinkRepo(db)
	pushStore := sqliteadapter.NewPushRepo(db)

	m := metrics.New()
	tasks := application.NewTaskRunner(logger)
	go func() {
		for {
			select {
			case <-tasks.Errors():
				m.ObserveTaskFailure()
			case <-ctx.Done():
				return
			}
		}
	}()

	// 5. Notifiers.
	var (
		notifiers     []driven.SubmissionNotifier
		panicNotifier driven.PanicNotifier
		vapidKey      string
	)
	if cfg.Email.Enabled {
		mailer, err := mailadapter.NewNotifier(mailadapter.Config{
			Host:        cfg.Email.Host,
			Port:        cfg.Email.Port,
			Username:    cfg.Email.Username,
			Password:    cfg.Email.Password,
			To:          cfg.Email.To,
			MaxAttempts: cfg.Email.MaxAttempts,
		}, logger)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, mailer)
		panicNotifier = mailer
		logger.Info("email notifications enabled", "to", cfg.Email.To)
	}
	if cfg.Push.Enabled {
		keys, err := webpushadapter.LoadOrCreateKeys(cfg.Push.KeyFile)
		if err != nil {
			return err
		}
		pusher := webpushadapter.NewNotifier(pushStore, keys, cfg.Push.Subscriber, logger)
		notifiers = append(notifiers, pusher)
		vapidKey = pusher.PublicKey()
		logger.Info("web push notifications enabled", "key_file", cfg.Push.KeyFile)
	}

	// 6. Application services.
	auth := newAuthenticator(cfg, userStore, logger)
	hours := application.NewHoursService(cfg.Hours.Enabled, cfg.Hours.Schedule, cfg.Hours.Location)
	submissions := application.NewSubmissionService(submissionStore, hours, tasks, logger, notifiers...)
	links := application.NewLinkService(linkStore, cfg.Links)

	controller, err := processadapter.NewController(logger)
	if err != nil {
		return err
	}
	binDir := cfg.Upgrade.BinDir
	if binDir == "" {
		// Install over the running binary so a restart picks up the new build.
		binDir = filepath.Dir(controller.Executable())
	}
	installer := processadapter.NewInstaller(processadapter.InstallerConfig{
		Command: cfg.Upgrade.InstallCommand,
		Source:  cfg.Upgrade.Source,
		WorkDir: cfg.Upgrade.WorkDir,
		BinDir:  binDir,
		Timeout: cfg.Upgrade.InstallTimeout,
	}, logger)
	upgrade := application.NewUpgradeService(application.UpgradeConfig{
		Enabled:         cfg.Upgrade.Enabled,
		WebhookSecret:   []byte(cfg.Upgrade.WebhookSecret),
		Branch:          cfg.Upgrade.Branch,
		VerifySignature: cfg.Upgrade.VerifySignature,
		VerifyBranch:    cfg.Upgrade.VerifyBranch,
		CleanupTimeout:  cfg.Upgrade.CleanupTimeout,
		DrainTimeout:    cfg.Upgrade.DrainTimeout,
	}, installer, controller, tasks, m, logger)

	var revisions driven.RevisionSource
	if cfg.Upgrade.GitHubRepo != "" {
		ghClient, err := githubadapter.NewClient(cfg.Upgrade.GitHubRepo, cfg.Upgrade.GitHubToken, logger)
		if err != nil {
			return err
		}
		revisions = ghClient
		logger.Info("github revision lookup enabled", "repo", cfg.Upgrade.GitHubRepo)
	}

	// 7. Create web and API handlers on one mux.
	guard := session.NewGuard(auth, logger)
	webHandler := webhandler.NewHandler(webhandler.Deps{
		Auth:          auth,
		Submissions:   submissions,
		Links:         links,
		Hours:         hours,
		Upgrade:       upgrade,
		Title:         cfg.Title,
		Content:       content,
		PushEnabled:   cfg.Push.Enabled,
		SecureCookies: cfg.SecureCookies,
		Observer:      m,
	}, guard, logger)
	apiHandler := httphandler.NewHandler(httphandler.Deps{
		Auth:           auth,
		Submissions:    submissions,
		Links:          links,
		Hours:          hours,
		Upgrade:        upgrade,
		Revisions:      revisions,
		Push:           pushStore,
		VAPIDPublicKey: vapidKey,
		ClosedPage:     http.HandlerFunc(webHandler.Closed),
		Observer:       m,
	}, guard, logger)

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)
	webhandler.RegisterRoutes(mux, webHandler)
	mux.Handle("GET /metrics", m.Handler())

	// Apply middleware.
	opts := []httphandler.Option{httphandler.WithObserver(m)}
	if panicNotifier != nil {
		opts = append(opts, httphandler.WithPanicNotifier(panicNotifier, tasks))
	}
	handler := httphandler.ApplyMiddleware(mux, logger, opts...)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	upgrade.SetDrain(srv.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 8. Log startup complete.
	logger.Info("wwwmin started", "listen_addr", cfg.ListenAddr, "executable", controller.Executable())

	// 9. Wait for shutdown signal, a listener failure or a failed restart.
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case err := <-upgrade.Fatal():
		// The server was drained for a restart that never happened.
		return fmt.Errorf("upgrade sequence: %w", err)
	}

	// 10. Graceful shutdown: drain requests, then stop background tasks.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Upgrade.DrainTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	stopTasks(tasks, cfg.Upgrade.DrainTimeout, logger)

	// 11. Log shutdown complete.
	logger.Info("shutdown complete")
	return nil
}

func stopTasks(tasks *application.TaskRunner, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := tasks.Shutdown(ctx); err != nil {
		logger.Error("background tasks did not stop in time", "error", err)
	}
}
