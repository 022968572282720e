package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/pxa264/e-shop-sub001/internal/di"
	"github.com/pxa264/e-shop-sub001/internal/handlers"
	"github.com/pxa264/e-shop-sub001/internal/platform/auth"
	"github.com/pxa264/e-shop-sub001/internal/platform/config"
	pfirestore "github.com/pxa264/e-shop-sub001/internal/platform/firestore"
	"github.com/pxa264/e-shop-sub001/internal/platform/jobs"
	"github.com/pxa264/e-shop-sub001/internal/platform/observability"
	firestoreRepo "github.com/pxa264/e-shop-sub001/internal/repositories/firestore"
	"github.com/pxa264/e-shop-sub001/internal/services"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	var publisher services.OrderEventPublisher
	if !cfg.Events.Disabled && strings.TrimSpace(cfg.Events.ProjectID) != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		topic := pubsubClient.Topic(cfg.Events.Topic)
		defer topic.Stop()
		publisher, err = jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Deps{
		Events: publisher,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	var dashboardAuthn *auth.DashboardAuthenticator
	if strings.TrimSpace(cfg.Dashboard.JWKSURL) != "" {
		jwksCache := auth.NewJWKSCache(cfg.Dashboard.JWKSURL)
		dashboardAuthn = auth.NewDashboardAuthenticator(jwksCache, cfg.Dashboard)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	orderHandlers := handlers.NewOrderHandlers(authenticator, container.Services.Orders)
	adminOrderHandlers := handlers.NewAdminOrderHandlers(authenticator, container.Services.Orders)
	meHandlers := handlers.NewMeHandlers(authenticator, container.Services.Users)
	dashboardHandlers := handlers.NewDashboardHandlers(dashboardAuthn, container.Services.Orders, container.Services.Audit)
	healthHandlers := handlers.NewHealthHandlers(registry.Health())

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminOrderRoutes(adminOrderHandlers.Routes),
		handlers.WithMeRoutes(meHandlers.Routes),
		handlers.WithDashboardRoutes(dashboardHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("order api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
