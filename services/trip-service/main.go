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

	"github.com/ridehail/control-plane/services/trip-service/internal/config"
	"github.com/ridehail/control-plane/services/trip-service/internal/handler"
	"github.com/ridehail/control-plane/services/trip-service/internal/pricingclient"
	"github.com/ridehail/control-plane/services/trip-service/internal/repository"
	"github.com/ridehail/control-plane/services/trip-service/internal/service"
	"github.com/ridehail/control-plane/shared/database"
	"github.com/ridehail/control-plane/shared/httpclient"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/middleware"
)

const serviceName = "trip-service"

func main() {
	cfg := config.Load()
	appLogger := logger.NewLogger("info", cfg.Environment)

	ctx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	mongoDB, err := database.NewMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase, appLogger)
	cancelConnect()
	if err != nil {
		appLogger.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoDB.Close(closeCtx)
	}()

	tripRepo := repository.NewMongoTripRepository(mongoDB, appLogger)
	if indexCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second); true {
		defer cancel()
		if err := tripRepo.EnsureIndexes(indexCtx); err != nil {
			appLogger.WithError(err).Warn("failed to ensure trip-service indexes")
		}
	}

	pricingHTTPClient := httpclient.NewClient(&httpclient.ClientConfig{
		BaseURL:          cfg.PricingServiceAddress,
		Timeout:          cfg.RPCTimeout,
		MaxRetryAttempts: cfg.RPCMaxRetryAttempts,
		Backoff:          cfg.RPCBackoff,
	}, appLogger)
	pricingClient := pricingclient.New(pricingHTTPClient)

	tripService := service.New(tripRepo, pricingClient, cfg.LockStripes, appLogger)
	tripHandler := handler.NewTripHandler(tripService)

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
	tripHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{"port": cfg.Port}).Info("trip service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("failed to start trip service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down trip service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("trip service forced to shutdown")
	}
	appLogger.Info("trip service shut down successfully")
}
