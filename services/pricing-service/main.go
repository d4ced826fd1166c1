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

	"github.com/ridehail/control-plane/services/pricing-service/internal/config"
	"github.com/ridehail/control-plane/services/pricing-service/internal/engine"
	"github.com/ridehail/control-plane/services/pricing-service/internal/handler"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/middleware"
)

const serviceName = "pricing-service"

func main() {
	cfg := config.Load()
	appLogger := logger.NewLogger("info", cfg.Environment)

	loader, err := engine.NewConfigLoader(cfg.ConfigPath, cfg.ReloadInterval, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("failed to load initial pricing config")
	}
	defer loader.Stop()

	pricingEngine := engine.New(loader, appLogger)
	pricingHandler := handler.NewPricingHandler(pricingEngine, loader)

	metricsMiddleware := middleware.NewMetricsMiddleware(serviceName, appLogger)

	router := gin.Default()
	router.Use(metricsMiddleware.PrometheusMetrics(serviceName))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "pricing-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/pricing/calculate", pricingHandler.CalculatePrice)
		v1.GET("/pricing/fallback", pricingHandler.GetFallbackConfig)
		v1.PUT("/pricing/fallback", pricingHandler.UpdateFallbackConfig)
	}

	server := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{"port": cfg.Port}).Info("pricing service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("failed to start pricing service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down pricing service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Fatal("pricing service forced to shutdown")
	}
	appLogger.Info("pricing service shut down successfully")
}
