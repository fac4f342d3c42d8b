// Package clerk adapts the external identity provider. The provider owns
// accounts and credentials; this package only resolves ids to profiles and
// verifies lifecycle webhooks.
package clerk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// BaseURL is the Clerk backend API base URL
	BaseURL = "https://api.clerk.com"
	// DefaultTimeout bounds every provider call
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrUserNotFound means the provider has no account for the id.
	ErrUserNotFound = errors.New("identity provider user not found")
	// ErrNotConfigured means the provider secret key is missing.
	ErrNotConfigured = errors.New("identity provider is not configured: missing CLERK_SECRET_KEY")
)

// User is the provider's view of an account.
type User struct {
	ID       string
	Name     string
	Email    string
	ImageURL string
	Role     string
}

// Config holds credentials for the provider client.
type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// Client calls the provider's backend API.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a provider client. A missing secret returns
// ErrNotConfigured so startup can distinguish misconfiguration.
func NewClient(config Config) (*Client, error) {
	if strings.TrimSpace(config.SecretKey) == "" {
		return nil, ErrNotConfigured
	}
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		secretKey: config.SecretKey,
		baseURL:   config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// apiUser is the provider's wire format for an account.
type apiUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Username       string `json:"username"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PublicMetadata struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

func (u *apiUser) toUser() *User {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = "User"
	}

	email := ""
	if len(u.EmailAddresses) > 0 {
		email = u.EmailAddresses[0].EmailAddress
	}

	role := u.PublicMetadata.Role
	if role == "" {
		role = "student"
	}

	return &User{
		ID:       u.ID,
		Name:     name,
		Email:    email,
		ImageURL: u.ImageURL,
		Role:     role,
	}
}

// GetUser resolves a provider id to a profile.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/users/"+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, string(body))
	}

	var wire apiUser
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode identity provider response: %w", err)
	}
	return wire.toUser(), nil
}

// SetRole updates the role stored in the provider's public metadata, so
// the role survives re-provisioning through webhooks.
func (c *Client) SetRole(ctx context.Context, userID, role string) error {
	payload := map[string]interface{}{
		"public_metadata": map[string]string{"role": role},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.baseURL+"/v1/users/"+userID+"/metadata", strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
