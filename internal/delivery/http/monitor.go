package http

import (
	"errors"
	"net/http"
	"stockwatch/internal/dto"
	"stockwatch/internal/service"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupMonitor(base *echo.Group) {
	v1 := base.Group("/v1/monitor")
	{
		v1.GET("", h.GetMonitorSnapshot)
		v1.POST("/toggle", h.ToggleSchedule)
		v1.POST("/trigger", h.TriggerNow)
		v1.POST("/refresh", h.RefreshNow, rateLimited())
		v1.GET("/insight", h.GetRunInsight)
	}
}

func (h *HttpAPIHandler) GetMonitorSnapshot(c echo.Context) error {
	snapshot := h.service.Monitor.Snapshot()
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Monitor snapshot", snapshot))
}

func (h *HttpAPIHandler) ToggleSchedule(c echo.Context) error {
	err := h.service.Monitor.Toggle(c.Request().Context())
	if err != nil {
		return c.JSON(mutationErrorCode(err), dto.NewBaseResponse(mutationErrorCode(err), err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Schedule toggled", h.service.Monitor.Snapshot()))
}

func (h *HttpAPIHandler) TriggerNow(c echo.Context) error {
	err := h.service.Monitor.TriggerNow(c.Request().Context())
	if err != nil {
		return c.JSON(mutationErrorCode(err), dto.NewBaseResponse(mutationErrorCode(err), err.Error(), nil))
	}
	return c.JSON(http.StatusAccepted, dto.NewBaseResponse(http.StatusAccepted, "Job triggered", nil))
}

func (h *HttpAPIHandler) RefreshNow(c echo.Context) error {
	h.service.Monitor.Refresh(c.Request().Context())
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Refreshed", h.service.Monitor.Snapshot()))
}

func (h *HttpAPIHandler) GetRunInsight(c echo.Context) error {
	insight, err := h.service.InsightService.Summarize(c.Request().Context())
	if err != nil {
		if errors.Is(err, service.ErrInsightDisabled) {
			return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, err.Error(), nil))
		}
		return c.JSON(http.StatusBadGateway, dto.NewBaseResponse(http.StatusBadGateway, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Run insight", insight))
}

func mutationErrorCode(err error) int {
	switch {
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrScheduleNotLoaded), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
