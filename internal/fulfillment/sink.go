// Package fulfillment delivers paid-order notifications to the external
// fulfillment automation endpoint. Delivery is best-effort: a failure here
// never touches the order's paid status.
package fulfillment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const signatureHeader = "X-Songgift-Signature"

type Client struct {
	URL    string
	Secret string // optional HMAC signing secret
	HTTP   *http.Client
}

func NewClient(url, secret string) *Client {
	return &Client{
		URL:    url,
		Secret: secret,
		HTTP:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Configured() bool { return c.URL != "" }

// Deliver posts the payload as JSON, HMAC-SHA256 signed when a secret
// is configured.
func (c *Client) Deliver(ctx context.Context, payload *OrderWebhook) error {
	if !c.Configured() {
		return fmt.Errorf("fulfillment sink not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SongGift-Webhook/1.0")
	if c.Secret != "" {
		req.Header.Set(signatureHeader, "sha256="+Sign(body, c.Secret))
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("post fulfillment webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fulfillment webhook status %d", resp.StatusCode)
	}
	return nil
}

func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
