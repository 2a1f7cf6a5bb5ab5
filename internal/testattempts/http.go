package testattempts

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

// errNotReady means the attempt has not been evaluated yet.
var errNotReady = errors.New("evaluation not ready")

// submitResult classifies a POST /attempts response.
type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultRejected
	resultFailed
)

type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *httpClient) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *httpClient) post(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) (int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	if out != nil && resp.StatusCode < http.StatusBadRequest && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func classifySubmit(status int, ack AckResponse, err error) submitResult {
	if err != nil {
		return resultFailed
	}
	switch status {
	case http.StatusAccepted:
		return resultAccepted
	case http.StatusOK:
		if ack.Duplicate {
			return resultDuplicate
		}
		return resultAccepted
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return resultRejected
	default:
		return resultFailed
	}
}
