// Package razorpay is a thin REST adapter for the Razorpay Orders API.
// Only the operations the checkout flow needs are implemented.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// BaseURL is the Razorpay API base URL
	BaseURL = "https://api.razorpay.com"
	// DefaultTimeout bounds every gateway call
	DefaultTimeout = 15 * time.Second
)

// ConfigError indicates the server-side gateway credentials are missing or
// malformed. Callers must surface it as a 503, never as a user error.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return "payment gateway is not configured: missing RAZORPAY_KEY_ID or RAZORPAY_KEY_SECRET"
	}
	return "payment gateway is not configured: " + e.Reason
}

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Config holds credentials and tuning for the client.
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client talks to the Razorpay API. Construct it once at startup and
// inject it into the services that need it.
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// NewClient validates the credentials and builds a client. A missing or
// malformed key pair returns *ConfigError so misconfiguration is
// distinguishable from request errors.
func NewClient(config Config) (*Client, error) {
	keyID := strings.TrimSpace(config.KeyID)
	keySecret := strings.TrimSpace(config.KeySecret)

	if keyID == "" || keySecret == "" {
		return nil, &ConfigError{}
	}
	if !strings.HasPrefix(keyID, "rzp_") {
		return nil, &ConfigError{Reason: "RAZORPAY_KEY_ID format is invalid, expected rzp_ prefix"}
	}
	if len(keySecret) < 20 {
		return nil, &ConfigError{Reason: "RAZORPAY_KEY_SECRET appears to be too short"}
	}

	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// KeyID returns the public key id, needed by browser checkout widgets.
func (c *Client) KeyID() string {
	return c.keyID
}

// doRequest performs an authenticated request and decodes the response
// into out.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var wrapper struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(respBody, &wrapper) == nil && wrapper.Error != nil {
			apiErr.Code = wrapper.Error.Code
			apiErr.Description = wrapper.Error.Description
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}
	return nil
}
