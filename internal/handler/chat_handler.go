package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/favorly/backend/internal/service"
)

type ChatHandler struct {
	svc service.ChatService
}

func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

// BlockedResponse is returned with 422 when moderation rejects a message.
type BlockedResponse struct {
	Blocked    bool   `json:"blocked"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion,omitempty"`
	Severity   string `json:"severity,omitempty"`
}

func (h *ChatHandler) GetTopicView(c echo.Context) error {
	topicID, err := strconv.ParseUint(c.Param("topicId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid topic id"))
	}
	uid := c.Get("uid").(string)

	view, err := h.svc.TopicView(c.Request().Context(), topicID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *ChatHandler) ListRoomMessages(c echo.Context) error {
	roomID := c.Param("roomId")
	uid := c.Get("uid").(string)

	msgs, err := h.svc.RoomMessages(c.Request().Context(), roomID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": msgs})
}

func (h *ChatHandler) ListConversations(c echo.Context) error {
	uid := c.Get("uid").(string)

	convs, err := h.svc.Conversations(c.Request().Context(), uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": convs})
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	topicID, err := strconv.ParseUint(c.Param("topicId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid topic id"))
	}
	uid := c.Get("uid").(string)

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}

	msg, err := h.svc.SendToTopic(c.Request().Context(), topicID, uid, req.Content)
	if err != nil {
		var modErr *service.ModerationError
		if errors.As(err, &modErr) {
			return c.JSON(http.StatusUnprocessableEntity, BlockedResponse{
				Blocked:    true,
				Reason:     modErr.Reason,
				Suggestion: modErr.Suggestion,
				Severity:   modErr.Severity,
			})
		}
		return serviceError(c, err)
	}
	if msg == nil {
		// Blank content is dropped without an error.
		return c.JSON(http.StatusOK, map[string]any{"message": nil})
	}
	return c.JSON(http.StatusCreated, map[string]any{"message": msg})
}

func (h *ChatHandler) MarkDelivered(c echo.Context) error {
	uid := c.Get("uid").(string)
	if err := h.svc.MarkDelivered(c.Request().Context(), c.Param("messageId"), uid); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChatHandler) MarkSeen(c echo.Context) error {
	uid := c.Get("uid").(string)
	if err := h.svc.MarkSeen(c.Request().Context(), c.Param("messageId"), uid); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChatHandler) Deactivate(c echo.Context) error {
	topicID, err := strconv.ParseUint(c.Param("topicId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid topic id"))
	}
	if err := h.svc.Deactivate(c.Request().Context(), topicID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
