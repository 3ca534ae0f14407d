package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HTTPProvider talks to an external identity-provider admin API.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// HTTPConfig configures the HTTP identity provider.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPProvider creates a provider backed by an admin API endpoint.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type accountRequest struct {
	PoolID         string `json:"poolId"`
	ClientID       string `json:"clientId,omitempty"`
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	Password       string `json:"password,omitempty"`
}

// CreateAccount registers login credentials for the user.
func (p *HTTPProvider) CreateAccount(ctx context.Context, poolID, clientID string, organizationID, userID uuid.UUID, password string) error {
	return p.do(ctx, http.MethodPost, "/accounts", accountRequest{
		PoolID:         poolID,
		ClientID:       clientID,
		OrganizationID: organizationID.String(),
		UserID:         userID.String(),
		Password:       password,
	})
}

// UpdatePassword replaces the user's password.
func (p *HTTPProvider) UpdatePassword(ctx context.Context, poolID, clientID string, organizationID, userID uuid.UUID, password string) error {
	return p.do(ctx, http.MethodPut, "/accounts/password", accountRequest{
		PoolID:         poolID,
		ClientID:       clientID,
		OrganizationID: organizationID.String(),
		UserID:         userID.String(),
		Password:       password,
	})
}

// DeleteAccount removes the user's login credentials.
func (p *HTTPProvider) DeleteAccount(ctx context.Context, poolID string, organizationID, userID uuid.UUID) error {
	return p.do(ctx, http.MethodDelete, "/accounts", accountRequest{
		PoolID:         poolID,
		OrganizationID: organizationID.String(),
		UserID:         userID.String(),
	})
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, payload accountRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("identity provider %s %s: status %d: %s", method, path, resp.StatusCode, string(detail))
	}
	return nil
}

var _ Provider = (*HTTPProvider)(nil)
