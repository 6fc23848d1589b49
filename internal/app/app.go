package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minutes/internal/config"
	"github.com/minutes/internal/details"
	"github.com/minutes/internal/intake"
	"github.com/minutes/internal/logging"
	"github.com/minutes/internal/middleware"
	"github.com/minutes/internal/preview"
	"github.com/minutes/internal/session"
)

type App struct {
	config      *config.Config
	logger      *slog.Logger
	sessions    *session.Manager
	previews    *preview.Registry
	intake      *intake.Intake
	views       *details.Builder
	maintenance *middleware.Maintenance
}

func New(args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return newApp(cfg, newLogger(cfg))
}

func newApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	previews := preview.NewRegistry()
	views := details.NewBuilder(previews, logger)

	sessions, err := session.NewManager(session.Options{
		Secret:        []byte(cfg.SessionSecret),
		TTL:           cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
		MaxSessions:   cfg.MaxSessions,
		OnEvict: func(st *session.State) {
			views.Release(st.DetailsScope())
		},
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	in := intake.New(intake.Config{
		MaxFileSize:  cfg.MaxAttachmentBytes(),
		PreviewWidth: cfg.PreviewWidth,
		Workers:      cfg.PreviewWorkers,
	}, logger)

	maintenance := &middleware.Maintenance{}
	maintenance.Set(cfg.MaintenanceMode)

	return &App{
		config:      cfg,
		logger:      logger,
		sessions:    sessions,
		previews:    previews,
		intake:      in,
		views:       views,
		maintenance: maintenance,
	}, nil
}

func (app *App) Start(ctx context.Context) error {
	// Create an errgroup derived from the parent context
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// Idle sessions take their form records and preview handles with them.
	g.Go(func() error {
		return app.sessions.Run(gctx, sweepInterval(app.config.SessionTTL))
	})

	g.Go(func() error {
		<-gctx.Done() // Wait for OS signal or parent context to fail

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped server", "sessions", app.sessions.Len())
	return nil
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func newLogger(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo

	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	logLevel = logging.ParseLevel(cfg.LogLevel, logLevel)

	logger := logging.New(os.Stdout, logLevel, cfg.IsProduction())

	slog.SetDefault(logger)
	return logger
}
