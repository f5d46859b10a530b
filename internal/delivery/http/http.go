package http

import (
	"context"
	"net/http"
	"stockwatch/internal/service"
	"stockwatch/pkg/middleware"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
}

func NewHttpAPIHandler(ctx context.Context, echo *echo.Echo, validator *goValidator.Validate, service *service.Service) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	base := h.echo.Group("/api")
	h.SetupMonitor(base)
	h.SetupPreferences(base)
}

func rateLimited() echo.MiddlewareFunc {
	return middleware.NewRateLimiterMiddleware()
}
