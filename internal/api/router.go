// Package api contains the HTTP handlers and routing for the payment service.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// SetupRouter configures the Gin router with all routes and middleware.
func SetupRouter(handler *Handler, ginMode string, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(ginMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	// Health check and metrics (public)
	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes := router.Group("/api")
	{
		payments := routes.Group("/payments")
		{
			payments.POST("", handler.CreatePayment)
			payments.GET("", handler.ListPayments)
			payments.GET("/:id", handler.GetPayment)
		}

		routes.GET("/banks", handler.ListBanks)

		// Provider notifications
		routes.POST("/notify", handler.HandleNotify)
		routes.GET("/notify", handler.NotifyStatus)
	}

	return router
}
