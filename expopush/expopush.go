// Package expopush is a minimal client for the Expo push gateway.
// Delivery is best effort: callers log failures and move on.
package expopush

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

// The gateway rejects oversized batches, so requests carry at most this
// many messages.
const maxBatchSize = 90

type Message struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Send posts the messages to the gateway in batches.  A failed batch
// does not stop the remaining batches; all batch errors are joined into
// the returned error.
func (c *Client) Send(ctx context.Context, messages []Message) error {
	var errs []error
	for _, batch := range splitBatches(messages, maxBatchSize) {
		if err := c.sendBatch(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) sendBatch(ctx context.Context, batch []Message) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("while marshaling push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("while building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("while posting push batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("non-2XX response from push gateway: %d %s", resp.StatusCode, respBody)
	}

	// Per-token receipts are not consulted; delivery is fire and
	// forget.
	return nil
}

func splitBatches(messages []Message, size int) [][]Message {
	var batches [][]Message
	for len(messages) > size {
		batches = append(batches, messages[:size])
		messages = messages[size:]
	}
	if len(messages) > 0 {
		batches = append(batches, messages)
	}
	return batches
}
