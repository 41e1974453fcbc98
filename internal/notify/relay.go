package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RelayConfig holds the relay platform's REST credentials.
type RelayConfig struct {
	AppID   string
	APIKey  string
	BaseURL string
}

// RelayClient talks to the relay platform's notification REST API. The
// relay owns its own device registry keyed by external user id, so the
// server side only ever sends ids, never device tokens.
type RelayClient struct {
	cfg        RelayConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewRelayClient(cfg RelayConfig, logger *zap.Logger) *RelayClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.relay-push.dev/v1"
	}
	return &RelayClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *RelayClient) NotifyUsers(ctx context.Context, externalIDs []string, p Payload) error {
	return c.post(ctx, map[string]any{
		"include_external_user_ids": externalIDs,
	}, p)
}

func (c *RelayClient) BroadcastAll(ctx context.Context, p Payload) error {
	return c.post(ctx, map[string]any{
		"included_segments": []string{"Subscribed Users"},
	}, p)
}

// NotifySegment forwards to the relay's location-segment primitive; the
// geographic resolution happens on their side.
func (c *RelayClient) NotifySegment(ctx context.Context, segment string, p Payload) error {
	return c.post(ctx, map[string]any{
		"included_segments": []string{segment},
	}, p)
}

func (c *RelayClient) post(ctx context.Context, audience map[string]any, p Payload) error {
	if c.cfg.AppID == "" || c.cfg.APIKey == "" {
		return fmt.Errorf("relay: missing app id or api key")
	}

	body := map[string]any{
		"app_id":           c.cfg.AppID,
		"headings":         map[string]string{"en": p.Title},
		"contents":         map[string]string{"en": p.Body},
		"url":              p.URL,
		"chrome_web_icon":  p.Icon,
		"chrome_web_badge": p.Badge,
	}
	for k, v := range audience {
		body[k] = v
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/notifications"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("relay: http %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
