package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()
	e.Use(SetNoCacheHeaders)

	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics.Handler()))
	}

	v1 := e.Group("/v1")
	if cfg.APIKey != "" {
		v1.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1.GET("/health", h.Health)
	v1.GET("/config", h.GetConfig)
	v1.GET("/settlements", h.ListSettlements)
	v1.GET("/settlements/:id", h.GetSettlement)
	v1.GET("/accounts/:address", h.GetAccount)
	v1.GET("/amm/quote", h.AMMQuote)
	v1.GET("/quote", h.Quote)

	// Mutating calls carry a request signature identifying the caller.
	write := []echo.MiddlewareFunc{VerifySignature(cfg.SignatureMaxAge)}
	if cfg.RateLimit > 0 {
		write = append(write, middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RateLimit),
			Burst:     int(cfg.RateLimit) + 1,
			ExpiresIn: 2 * time.Minute,
		})))
	}
	v1.POST("/settlements", h.ProcessSettlement, write...)
	v1.POST("/settlements/:id/refund", h.RefundSettlement, write...)

	adm := v1.Group("/admin", write...)
	adm.POST("/initialize", h.Initialize)
	adm.PUT("/config", h.UpdateConfig)
	adm.POST("/pause", h.Pause)
	adm.POST("/unpause", h.Unpause)
	adm.POST("/recover", h.RecoverFunds)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
