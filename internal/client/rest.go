package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/favorly/backend/internal/model"
	"github.com/favorly/backend/internal/service"
	"github.com/gorilla/websocket"
)

// RESTClient talks to the chat REST surface, identifying the caller with
// the X-User-ID header on every request.
type RESTClient struct {
	baseURL string
	userID  string
	http    *http.Client
}

func NewRESTClient(baseURL, userID string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		userID:  userID,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *RESTClient) TopicView(ctx context.Context, topicID uint64) (*service.TopicView, error) {
	var out service.TopicView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/chat/topics/%d", topicID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) Messages(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	var out struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chat/rooms/"+roomID+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *RESTClient) SendMessage(ctx context.Context, topicID uint64, content string) (*model.ChatMessage, error) {
	body := map[string]string{"content": content}
	var out struct {
		Message *model.ChatMessage `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/chat/topics/%d/messages", topicID), body, &out); err != nil {
		return nil, err
	}
	return out.Message, nil
}

func (c *RESTClient) MarkSeen(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodPost, "/api/chat/messages/"+messageID+"/seen", nil, nil)
}

func (c *RESTClient) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("X-User-ID", c.userID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e) == nil && e.Error.Message != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, e.Error.Message, e.Error.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// WebSocketDialer dials the realtime endpoint. *websocket.Conn satisfies
// the hook's connection interface as-is.
func WebSocketDialer(wsURL string) Dialer {
	return func(ctx context.Context) (socketConn, error) {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
