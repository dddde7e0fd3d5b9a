package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient talks to a deployed intent endpoint speaking the JSON contract
// in this package. Audio is carried base64-encoded by encoding/json.
type HTTPClient struct {
	HTTP     *http.Client
	Endpoint string
	APIKey   string
}

// NewHTTPClient builds a client with a sane transport timeout; per-call
// deadlines still come from the caller's context.
func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Endpoint: endpoint,
		APIKey:   apiKey,
	}
}

// Resolve posts the utterance and decodes the verdict. A transport error, a
// non-2xx status or success=false all surface as errors so the caller's
// failure path stays uniform.
func (c *HTTPClient) Resolve(ctx context.Context, reqData Request) (Response, error) {
	if c.Endpoint == "" {
		return Response{}, fmt.Errorf("resolver endpoint not configured")
	}

	body, err := json.Marshal(reqData)
	if err != nil {
		return Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("resolver request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, fmt.Errorf("resolver error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("resolver decode: %w", err)
	}
	if !out.Success {
		return out, fmt.Errorf("resolver rejected utterance: %s", out.Error)
	}
	return out, nil
}
