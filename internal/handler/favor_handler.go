package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/favorly/backend/internal/service"
)

type FavorHandler struct {
	svc service.FavorService
}

func NewFavorHandler(svc service.FavorService) *FavorHandler {
	return &FavorHandler{svc: svc}
}

// Accept assigns the caller as the favor's helper and opens its chat room.
func (h *FavorHandler) Accept(c echo.Context) error {
	favorID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid favor id"))
	}
	uid := c.Get("uid").(string)

	room, err := h.svc.Accept(c.Request().Context(), favorID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"chatRoomId": room.ID})
}

// Complete marks the favor done; the room flips read-only as a side effect.
func (h *FavorHandler) Complete(c echo.Context) error {
	favorID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid favor id"))
	}
	uid := c.Get("uid").(string)

	if err := h.svc.Complete(c.Request().Context(), favorID, uid); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "completed"})
}
