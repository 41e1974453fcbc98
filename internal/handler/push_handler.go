package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/favorly/backend/internal/model"
	"github.com/favorly/backend/internal/repository"
)

type PushHandler struct {
	subs repository.SubscriptionRepository
}

func NewPushHandler(subs repository.SubscriptionRepository) *PushHandler {
	return &PushHandler{subs: subs}
}

type SubscribeRequest struct {
	Platform model.PushPlatform `json:"platform"`
	Data     json.RawMessage    `json:"subscriptionData"`
	Endpoint *string            `json:"endpoint"`
}

func (h *PushHandler) Subscribe(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if !req.Platform.Valid() {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unknown platform"))
	}
	if len(req.Data) == 0 {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "subscription data is required"))
	}

	sub := &model.PushSubscription{
		UserID:   uid,
		Platform: req.Platform,
		Data:     []byte(req.Data),
		Endpoint: req.Endpoint,
	}
	if err := h.subs.Upsert(c.Request().Context(), sub); err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to save subscription"))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "subscribed"})
}

func (h *PushHandler) Unsubscribe(c echo.Context) error {
	uid := c.Get("uid").(string)
	if err := h.subs.Delete(c.Request().Context(), uid); err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to remove subscription"))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// Status reports whether a user currently has a push subscription and on
// which platform, without exposing the stored credentials.
func (h *PushHandler) Status(c echo.Context) error {
	userID := c.Param("userId")
	sub, err := h.subs.FindByUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, map[string]any{"subscribed": false})
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch subscription"))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"subscribed": true,
		"platform":   sub.Platform,
	})
}
