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

	"github.com/dimitrije/washdesk-api/internal/config"
	"github.com/dimitrije/washdesk-api/internal/database"
	"github.com/dimitrije/washdesk-api/internal/handlers"
	"github.com/dimitrije/washdesk-api/internal/identity"
	"github.com/dimitrije/washdesk-api/internal/metrics"
	authmw "github.com/dimitrije/washdesk-api/internal/middleware"
	"github.com/dimitrije/washdesk-api/internal/oauth"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/dimitrije/washdesk-api/internal/services"
	"github.com/dimitrije/washdesk-api/internal/session"
	"github.com/dimitrije/washdesk-api/internal/sse"
	"github.com/dimitrije/washdesk-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "washdesk-api",
		Level:       cfg.LogLevel,
		Console:     !cfg.IsProduction(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	accessMetrics := metrics.NewAccess(reg)

	jwtService := services.NewJWTService(cfg.SessionSecret, cfg.SessionTTL)
	profileService := services.NewProfileService(db)
	bootstrapService := services.NewBootstrapService(db)
	inviteService := services.NewInviteService(db)
	auditService := services.NewAuditService(db)
	emailService := services.NewEmailService(cfg.SMTP)
	if !emailService.IsConfigured() {
		log.Info().Msg("SMTP is not configured, invite emails are disabled")
	}

	resolver := services.NewProfileResolver(profileService, bootstrapService, inviteService, services.ResolverConfig{
		SuperAdminEmail: cfg.SuperAdminEmail,
		Logger:          log.With().Str("component", "resolver").Logger(),
		Metrics:         accessMetrics,
		Audit:           auditService,
	})
	evaluator := rbac.NewEvaluator(rbac.DefaultMatrix(), log.With().Str("component", "rbac").Logger())

	hub := identity.NewHub(log.With().Str("component", "identity").Logger())
	go hub.Run(ctx)

	events := sse.NewHub()
	go events.Run(ctx)

	if cfg.Google.ClientID == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID is not set, sign-in will fail")
	}
	flow := identity.NewFlow(oauth.NewGoogleProvider(cfg.Google), hub, log.With().Str("component", "signin").Logger())
	go flow.CleanupStates(ctx, time.Minute)

	registry := session.NewRegistry(func(sessionID uuid.UUID) (*session.Store, error) {
		return session.NewStore(
			identity.NewClientAuth(sessionID, hub, flow),
			resolver,
			profileService,
			session.WithEvaluator(evaluator),
			session.WithLogger(log.With().Str("session_id", sessionID.String()).Logger()),
			session.WithResolveTimeout(cfg.ResolveTimeout),
			session.WithMetrics(accessMetrics),
			session.WithOnChange(func() { events.SessionChanged(sessionID) }),
		)
	}, session.RegistryConfig{
		IdleTimeout: cfg.SessionIdleTimeout,
		Logger:      log.With().Str("component", "sessions").Logger(),
		Metrics:     accessMetrics,
		OnEvict:     hub.Forget,
	})
	registryDone := make(chan struct{})
	go func() {
		registry.Run(ctx, time.Minute)
		close(registryDone)
	}()

	authHandler := handlers.NewAuthHandler(cfg.FrontendURL, registry, jwtService, flow, log.With().Str("component", "auth").Logger())
	sessionHandler := handlers.NewSessionHandler()
	navigationHandler := handlers.NewNavigationHandler()
	inviteHandler := handlers.NewInviteHandler(inviteService, auditService, emailService, cfg.FrontendURL, log.With().Str("component", "invites").Logger())
	auditHandler := handlers.NewAuditHandler(auditService)
	userHandler := handlers.NewUserHandler(profileService)
	eventsHandler := handlers.NewEventsHandler(events)

	apiDocs, err := services.NewAPIDocService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load API document")
	}
	docsHandler := handlers.NewDocsHandler(apiDocs)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/google/sign-in", authHandler.SignIn)
	auth.Get("/google/callback", authHandler.Callback)

	protected := api.Group("")
	protected.Use(authmw.Session(jwtService, registry))

	protected.Post("/auth/logout", authHandler.Logout)

	protected.Get("/session", sessionHandler.Get)
	protected.Get("/session/permissions", sessionHandler.Permission)
	protected.Patch("/session/profile", sessionHandler.UpdateProfile)
	protected.Get("/session/events", eventsHandler.Stream)

	protected.Get("/navigation", navigationHandler.List)

	screens := protected.Group("/screens")
	screens.Use(authmw.ScreenGuard(accessMetrics))
	screens.Get("/:screen", navigationHandler.Screen)

	users := protected.Group("")
	users.Use(authmw.RouteGuard(rbac.ResourceUsers, accessMetrics))
	users.Get("/users", userHandler.List)
	users.Get("/invites", inviteHandler.List)
	users.Post("/invites", inviteHandler.Create)
	users.Delete("/invites/:id", inviteHandler.Delete)

	auditLog := protected.Group("")
	auditLog.Use(authmw.RouteGuard(rbac.ResourceAuditLog, accessMetrics))
	auditLog.Get("/audit", auditHandler.Recent)

	api.Get("/openapi.json", docsHandler.OpenAPI)
	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]any{"status": "ok", "sessions": registry.Len()})
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler(reg))
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener starting")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics listener failed")
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info().Str("addr", addr).Msg("server starting")
		if err := app.Run(addr); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()
	<-registryDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
