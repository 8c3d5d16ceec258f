// Package whatsapp implements messenger.Messenger against the WhatsApp
// Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/bookabot/internal/config"
	"github.com/jwalitptl/bookabot/internal/messenger"
	"github.com/jwalitptl/bookabot/pkg/circuitbreaker"
)

type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
	cb            *circuitbreaker.CircuitBreaker
}

func NewClient(cfg config.WhatsAppConfig) *Client {
	return &Client{
		baseURL:       cfg.APIURL,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "whatsapp-api",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
		}),
	}
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	return c.send(ctx, to, payload)
}

func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []messenger.Button) (string, error) {
	replies := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, map[string]interface{}{
			"type":  "reply",
			"reply": map[string]string{"id": b.ID, "title": b.Title},
		})
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "button",
			"body":   map[string]string{"text": body},
			"action": map[string]interface{}{"buttons": replies},
		},
	}
	return c.send(ctx, to, payload)
}

func (c *Client) SendList(ctx context.Context, to, header, buttonLabel string, items []messenger.ListItem) (string, error) {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{"id": item.ID, "title": item.Title})
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "list",
			"header": map[string]string{"type": "text", "text": header},
			"body":   map[string]string{"text": "Please choose from the following:"},
			"action": map[string]interface{}{
				"button":   buttonLabel,
				"sections": []map[string]interface{}{{"rows": rows}},
			},
		},
	}
	return c.send(ctx, to, payload)
}

func (c *Client) send(ctx context.Context, to string, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	var messageID string
	err = c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 400 {
			log.Warn().
				Int("status", resp.StatusCode).
				Str("to", to).
				Str("response", string(respBody)).
				Msg("whatsapp api rejected message")
			return fmt.Errorf("whatsapp api returned status %d", resp.StatusCode)
		}

		var parsed sendResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return fmt.Errorf("failed to decode send response: %w", err)
		}
		if len(parsed.Messages) > 0 {
			messageID = parsed.Messages[0].ID
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}
