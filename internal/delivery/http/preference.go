package http

import (
	"errors"
	"net/http"
	"stockwatch/internal/dto"
	"stockwatch/internal/service"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupPreferences(base *echo.Group) {
	v1 := base.Group("/v1/preferences")
	{
		v1.GET("/email", h.GetRecipientEmail)
		v1.PUT("/email", h.SaveRecipientEmail)
	}
}

func (h *HttpAPIHandler) GetRecipientEmail(c echo.Context) error {
	email, err := h.service.PreferenceService.GetRecipientEmail(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Recipient email", dto.PreferenceResponse{Email: email}))
}

func (h *HttpAPIHandler) SaveRecipientEmail(c echo.Context) error {
	var req dto.PreferenceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	err := h.service.PreferenceService.SaveRecipientEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Recipient email saved", dto.PreferenceResponse{Email: req.Email}))
}
