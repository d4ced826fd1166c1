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

	"github.com/ridehail/control-plane/services/driver-status-service/internal/config"
	"github.com/ridehail/control-plane/services/driver-status-service/internal/handler"
	"github.com/ridehail/control-plane/services/driver-status-service/internal/store"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/middleware"
)

const serviceName = "driver-status-service"

func main() {
	cfg := config.Load()
	appLogger := logger.NewLogger("info", cfg.Environment)

	driverStore := store.New()
	driverHandler := handler.NewDriverStatusHandler(driverStore)

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
	driverHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{"port": cfg.Port}).Info("driver status service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("failed to start driver status service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down driver status service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Fatal("driver status service forced to shutdown")
	}
	appLogger.Info("driver status service shut down successfully")
}
