// Package notify sends WhatsApp messages through the Kapso messaging
// gateway. Without credentials it runs in mock mode and only logs, which is
// how local runs and tests stay silent on the wire.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afalarconm/barnechea-driver/internal/metrics"
)

// Config carries the messaging gateway settings.
type Config struct {
	BaseURL       string
	APIKey        string
	PhoneNumberID string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Client posts messages to the gateway's Meta-compatible endpoint.
type Client struct {
	base    string
	apiKey  string
	phoneID string
	http    *http.Client
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		base:    cfg.BaseURL,
		apiKey:  cfg.APIKey,
		phoneID: cfg.PhoneNumberID,
		http:    hc,
	}
}

// Configured reports whether real messages can be sent.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.phoneID != ""
}

// SendText sends a plain text message. Only works inside an open WhatsApp
// session window; business-initiated contact needs SendTemplate.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	if !c.Configured() {
		log.Info().Str("to", to).Str("text", text).Msg("mock whatsapp message")
		metrics.NotificationsTotal.WithLabelValues("text", "mock").Inc()
		return nil
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	err := c.post(ctx, payload)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("text", "error").Inc()
		return fmt.Errorf("whatsapp message to %s: %w", to, err)
	}
	metrics.NotificationsTotal.WithLabelValues("text", "sent").Inc()
	log.Info().Str("to", to).Msg("whatsapp message sent")
	return nil
}

// SendTemplate sends an approved template message, the only way to reach a
// user outside a session window. params fill the body placeholders in order;
// buttonPayloads fill quick-reply buttons, if the template has them.
func (c *Client) SendTemplate(ctx context.Context, to, template string, params, buttonPayloads []string) error {
	if !c.Configured() {
		log.Info().Str("to", to).Str("template", template).Strs("params", params).Msg("mock whatsapp template")
		metrics.NotificationsTotal.WithLabelValues("template", "mock").Inc()
		return nil
	}

	var components []map[string]any
	if len(params) > 0 {
		bodyParams := make([]map[string]string, 0, len(params))
		for _, p := range params {
			bodyParams = append(bodyParams, map[string]string{"type": "text", "text": p})
		}
		components = append(components, map[string]any{"type": "body", "parameters": bodyParams})
	}
	for i, payload := range buttonPayloads {
		components = append(components, map[string]any{
			"type":     "button",
			"sub_type": "quick_reply",
			"index":    fmt.Sprintf("%d", i),
			"parameters": []map[string]string{
				{"type": "payload", "payload": payload},
			},
		})
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]any{
			"name":       template,
			"language":   map[string]string{"code": "es"},
			"components": components,
		},
	}
	err := c.post(ctx, payload)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("template", "error").Inc()
		return fmt.Errorf("whatsapp template %s to %s: %w", template, to, err)
	}
	metrics.NotificationsTotal.WithLabelValues("template", "sent").Inc()
	log.Info().Str("to", to).Str("template", template).Msg("whatsapp template sent")
	return nil
}

func (c *Client) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/meta/whatsapp/v24.0/%s/messages", c.base, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
