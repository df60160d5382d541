package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardfile/cardfile/internal/avatar"
	httpapi "github.com/cardfile/cardfile/internal/http"
	"github.com/cardfile/cardfile/internal/mail"
	"github.com/cardfile/cardfile/internal/service"
	"github.com/cardfile/cardfile/internal/store"
	"github.com/cardfile/cardfile/internal/store/drivers/sqlite"
	"github.com/cardfile/cardfile/pkg/cryptox"
	"github.com/cardfile/cardfile/pkg/jwtx"
	"github.com/cardfile/cardfile/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	codec   *jwtx.Codec
	issuer  *jwtx.Issuer
	mailer  *mail.Dispatcher
	avatars *avatar.DiskStore

	authService    *service.AuthService
	userService    *service.UserService
	contactService *service.ContactService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "cardfile",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	codec, err := jwtx.NewCodec([]byte(app.cfg.TokenSecret))
	if err != nil {
		return nil, ErrMissingSecret
	}
	app.codec = codec
	app.issuer = jwtx.NewIssuer(codec, app.cfg.Issuer, app.cfg.AccessTTL, app.cfg.RefreshTTL, app.cfg.ConfirmTTL)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	avatars, err := avatar.NewDiskStore(app.cfg.AvatarDir, "/avatars")
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.avatars = avatars

	app.initMail()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.mailer.Start()

	app.logger.Info("cardfile starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down cardfile...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Drain queued mail before dropping the database
	app.mailer.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("cardfile stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initMail picks the SMTP sender when a relay is configured, the log-only
// sender otherwise.
func (app *Application) initMail() {
	var sender mail.Sender = mail.LogSender{}
	if app.cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.SMTPFrom,
		})
	} else {
		app.logger.Info("no SMTP host configured, mail goes to the log")
	}
	app.mailer = mail.NewDispatcher(sender)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	baseURL := app.cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", app.cfg.Port)
	}

	app.authService = &service.AuthService{
		Store:   app.db,
		Codec:   app.codec,
		Tokens:  app.issuer,
		Mail:    app.mailer,
		BaseURL: baseURL,
	}
	app.userService = &service.UserService{
		Store:   app.db,
		Avatars: app.avatars,
	}
	app.contactService = &service.ContactService{Store: app.db}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.db, app.logger, BuildVersion)

	router.AuthService = app.authService
	router.UserService = app.userService
	router.ContactService = app.contactService
	router.AvatarDir = app.avatars.Dir()
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
