package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Carrier delivers messages over HTTP to a carrier webhook. The carrier is
// expected to answer 202 Accepted with a JSON body containing a messageId.
type Carrier struct {
	url    string
	client *http.Client
}

func NewCarrier(url string) *Carrier {
	return &Carrier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

var _ Provider = (*Carrier)(nil)

func (c *Carrier) Name() string { return "carrier-http" }

type sendRequest struct {
	Destination string `json:"destination"`
	Payload     string `json:"payload"`
}

type sendResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

func (c *Carrier) Send(ctx context.Context, destination, payload string) (Result, error) {
	reqBody, err := json.Marshal(sendRequest{
		Destination: destination,
		Payload:     payload,
	})
	if err != nil {
		return Result{ProviderName: c.Name()}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return Result{ProviderName: c.Name()}, err
	}
	req.Header.Set("Content-Type", "application/json")
	// One key per HTTP submission, for carrier-side tracing and detection
	// of duplicated requests in transit. It is fresh on every attempt, so
	// it cannot deduplicate a re-send after a crash between remote success
	// and the local sent-mark.
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{ProviderName: c.Name(), ProviderResponse: err.Error()}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		err := fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
		return Result{ProviderName: c.Name(), ProviderResponse: string(body)}, err
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return Result{ProviderName: c.Name(), ProviderResponse: string(body)},
			fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if sr.MessageID == "" {
		return Result{ProviderName: c.Name(), ProviderResponse: string(body)},
			fmt.Errorf("missing messageId in response body=%q", string(body))
	}

	return Result{ProviderName: c.Name(), ProviderResponse: sr.MessageID}, nil
}
