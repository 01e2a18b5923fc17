package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client represents a Supabase auth client
type Client struct {
	URL        string
	AnonKey    string
	HTTPClient *http.Client
}

// NewClient creates a new Supabase client
func NewClient(url, anonKey string) *Client {
	return &Client{
		URL:        strings.TrimRight(url, "/"),
		AnonKey:    anonKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// User represents a Supabase user
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// VerifyToken verifies a JWT token with Supabase and returns its user
func (c *Client) VerifyToken(ctx context.Context, token string) (*User, error) {
	url := fmt.Sprintf("%s/auth/v1/user", c.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.AnonKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("token verification failed (status %d): %s", resp.StatusCode, string(body))
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("token verification returned no user id")
	}

	return &user, nil
}
