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

	"github.com/ridehail/control-plane/services/matching-service/internal/config"
	"github.com/ridehail/control-plane/services/matching-service/internal/handler"
	"github.com/ridehail/control-plane/services/matching-service/internal/service"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/middleware"
)

const serviceName = "matching-service"

func main() {
	cfg := config.Load()
	appLogger := logger.NewLogger("info", cfg.Environment)

	matchingService := service.New()
	matchingHandler := handler.NewMatchingHandler(matchingService, cfg.MaxCandidates)

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
	matchingHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{"port": cfg.Port}).Info("matching service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("failed to start matching service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down matching service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Fatal("matching service forced to shutdown")
	}
	appLogger.Info("matching service shut down successfully")
}
