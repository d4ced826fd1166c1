package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ridehail/control-plane/services/orchestrator-service/internal/clients"
	"github.com/ridehail/control-plane/services/orchestrator-service/internal/config"
	"github.com/ridehail/control-plane/services/orchestrator-service/internal/handler"
	"github.com/ridehail/control-plane/services/orchestrator-service/internal/idempotency"
	"github.com/ridehail/control-plane/services/orchestrator-service/internal/workflow"
	"github.com/ridehail/control-plane/shared/cache"
	"github.com/ridehail/control-plane/shared/database"
	"github.com/ridehail/control-plane/shared/events"
	"github.com/ridehail/control-plane/shared/httpclient"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/middleware"
)

const serviceName = "orchestrator-service"

func main() {
	cfg := config.Load()
	appLogger := logger.NewLogger("info", cfg.Environment)

	idempotencyCache := newIdempotencyCache(cfg, appLogger)

	clientConfig := func(baseURL string) *httpclient.ClientConfig {
		return &httpclient.ClientConfig{
			BaseURL:          baseURL,
			Timeout:          cfg.RPCTimeout,
			MaxRetryAttempts: cfg.RPCMaxRetryAttempts,
			Backoff:          cfg.RPCBackoff,
		}
	}

	tripRequestClient := clients.NewTripRequestClient(httpclient.NewClient(clientConfig(cfg.TripRequestServiceAddress), appLogger))
	matchingClient := clients.NewMatchingClient(httpclient.NewClient(clientConfig(cfg.MatchingServiceAddress), appLogger))
	pricingClient := clients.NewPricingClient(httpclient.NewClient(clientConfig(cfg.PricingServiceAddress), appLogger))
	driverStatusClient := clients.NewDriverStatusClient(httpclient.NewClient(clientConfig(cfg.DriverStatusServiceAddress), appLogger))
	tripClient := clients.NewTripClient(httpclient.NewClient(clientConfig(cfg.TripServiceAddress), appLogger))

	idempotencyStore := idempotency.New(idempotencyCache, cfg.IdempotencyTTL)
	eventBus := events.NewInMemoryEventBus(appLogger)
	eventStore := events.NewInMemoryEventStore(appLogger)
	eventPublisher := events.NewEventPublisher(eventBus, eventStore, appLogger)

	wf := workflow.New(tripRequestClient, matchingClient, pricingClient, driverStatusClient, tripClient, idempotencyStore, eventPublisher, appLogger)
	orchestratorHandler := handler.NewOrchestratorHandler(wf, cfg.MaxCandidates)

	loggingMiddleware := middleware.NewLoggingMiddleware(appLogger)
	metricsMiddleware := middleware.NewMetricsMiddleware(serviceName, appLogger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware.RequestLogger())
	router.Use(metricsMiddleware.PrometheusMetrics(serviceName))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	orchestratorHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{"port": cfg.Port}).Info("orchestrator service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("failed to start orchestrator service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down orchestrator service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Fatal("orchestrator service forced to shutdown")
	}
	appLogger.Info("orchestrator service shut down successfully")
}

// newIdempotencyCache dials Redis for the workflow's key -> trip_id
// idempotency store (spec.md §6's "external key-value store"); if Redis
// is unreachable at startup it falls back to an in-process cache so a
// single orchestrator instance still honors the idempotency contract,
// though that fallback does not survive a restart or fan out across
// replicas.
func newIdempotencyCache(cfg *config.Config, log *logger.Logger) cache.Cache {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisDB, err := database.NewRedisDB(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		log.WithError(err).Warn("idempotency store falling back to in-memory cache: Redis unavailable")
		return cache.NewMemoryCache(cfg.IdempotencyTTL)
	}
	return cache.NewRedisCache(redisDB.Client, "workflow:idempotency")
}
