package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/threesixtyfive/server/internal/config"
	"github.com/threesixtyfive/server/internal/handlers"
	mwsession "github.com/threesixtyfive/server/internal/middleware"
	"github.com/threesixtyfive/server/internal/observability"
	"github.com/threesixtyfive/server/internal/repository"
	"github.com/threesixtyfive/server/internal/services"
)

const serviceName = "threesixtyfive"

func main() {
	if err := run(); err != nil {
		observability.Errorf("Server exited: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	telemetry, err := observability.Initialize(ctx, observability.NewConfig(serviceName, handlers.Version))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			observability.Warnf("Telemetry shutdown: %v", err)
		}
	}()

	db, system, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	traced, err := observability.NewTraceDB(db, system)
	if err != nil {
		return err
	}

	var photoRepo repository.PhotoRepo
	if cfg.UsePostgres() {
		photoRepo = repository.NewPhotoRepositoryPostgres(traced)
	} else {
		photoRepo = repository.NewPhotoRepository(traced)
	}
	sessionRepo := repository.NewWebSessionRepository(traced)

	offset, err := cfg.Offset()
	if err != nil {
		return err
	}

	cipher, err := services.NewTokenCipher(cfg.Session.Secret, cfg.Session.Salt)
	if err != nil {
		return err
	}
	sessionService := services.NewSessionService(sessionRepo, cipher, cfg.Session.DurationHours)

	oauthService := services.NewOAuthService(services.OAuthSettings{
		ClientID:     cfg.Instagram.ClientID,
		ClientSecret: cfg.Instagram.ClientSecret,
		AuthURL:      cfg.Instagram.AuthURL,
		TokenURL:     cfg.Instagram.TokenURL,
		RedirectURL:  cfg.Instagram.RedirectURL,
		Scopes:       cfg.Instagram.Scopes,
	})

	reconcileMetrics, err := observability.NewReconcileMetrics()
	if err != nil {
		return err
	}
	guard, err := services.NewRunGuard(cfg.LockDir)
	if err != nil {
		return err
	}

	hub := services.NewEventHub()
	go hub.Run(ctx)

	reconcileService := services.NewReconcileService(
		photoRepo,
		services.NewInstagramClientFactory(cfg.Instagram.APIBaseURL, cfg.Feed.RequestTimeout, services.DefaultBreakerSettings()),
		services.NewFeedReader(cfg.Feed.DrainTimeout, reconcileMetrics),
		services.NewDayBucketer(offset),
		guard,
		hub,
		reconcileMetrics,
	)

	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(observability.TracingMiddleware(serviceName))
	r.Use(observability.MetricsMiddleware(httpMetrics))
	r.Use(mwsession.LoadSession(sessionService))

	galleryHandler := handlers.NewGalleryHandler(photoRepo)
	photoHandler := handlers.NewPhotoHandler(photoRepo)
	workHandler := handlers.NewWorkHandler(reconcileService, sessionService, photoRepo, services.FormatUTCOffset(offset))
	oauthHandler := handlers.NewOAuthHandler(oauthService, sessionService, cfg.Session.CookieSecure)
	eventsHandler := handlers.NewEventsHandler(hub)
	healthHandler := handlers.NewHealthHandler(db)

	r.Get("/", galleryHandler.Index)
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/version", handlers.VersionHandler)
	r.Get("/ws", eventsHandler.HandleConnection)

	r.Route("/api/photos", func(r chi.Router) {
		r.Get("/", photoHandler.List)
		r.Get("/{year}", photoHandler.ListByYear)
	})

	r.Route("/work", func(r chi.Router) {
		r.Get("/", workHandler.Status)
		r.Get("/connect", oauthHandler.Connect)
		r.Get("/callback", oauthHandler.Callback)

		r.Group(func(r chi.Router) {
			r.Use(mwsession.RequireSession)
			r.Get("/check", workHandler.Check)
			r.Get("/check/{year}", workHandler.CheckYear)
			r.Get("/db/truncate", workHandler.Truncate)
			r.Post("/db/truncate", workHandler.Truncate)
			r.Post("/disconnect", oauthHandler.Disconnect)
		})
	})

	go cleanupSessions(ctx, sessionService)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// a check drains the whole feed before answering
		WriteTimeout: cfg.Feed.DrainTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		observability.Infof("Server starting on %s, days counted in %s", cfg.ServerAddress, services.FormatUTCOffset(offset))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	observability.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	observability.Info("Server stopped")
	return nil
}

func openDatabase(cfg *config.Config) (*sql.DB, string, error) {
	if cfg.UsePostgres() {
		observability.Info("Using PostgreSQL database")
		db, err := repository.NewPostgresDB(cfg.DatabaseURL)
		return db, "postgresql", err
	}
	observability.Infof("Using SQLite database at %s", cfg.DatabasePath)
	db, err := repository.NewSQLiteDB(cfg.DatabasePath)
	return db, "sqlite", err
}

func cleanupSessions(ctx context.Context, sessions *services.SessionService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.CleanupExpired(ctx)
			if err != nil {
				observability.Warnf("Session cleanup failed: %v", err)
				continue
			}
			if removed > 0 {
				observability.Infof("Removed %d expired sessions", removed)
			}
		}
	}
}
