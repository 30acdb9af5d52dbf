package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BillingProvider resolves a stored billing customer identifier to the
// customer's billing email address. Used only for pseudonym translation in
// the admin review listing.
type BillingProvider interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// HTTPBillingProvider calls the billing service's customer lookup endpoint.
type HTTPBillingProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPBillingProvider creates a billing provider client
func NewHTTPBillingProvider(baseURL, apiKey string, timeout time.Duration) *HTTPBillingProvider {
	return &HTTPBillingProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// CustomerEmail fetches the billing email for a customer id
func (p *HTTPBillingProvider) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	url := fmt.Sprintf("%s/v1/customers/%s", p.baseURL, customerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build billing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("billing lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("billing lookup returned status %d", resp.StatusCode)
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode billing response: %w", err)
	}

	if payload.Email == "" {
		return "", fmt.Errorf("billing customer %s has no email on file", customerID)
	}

	return payload.Email, nil
}
