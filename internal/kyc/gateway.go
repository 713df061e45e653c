// Package kyc adapts the external KYC verification service. The core only
// needs a yes/no approval gate before share issuance.
package kyc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wyfcoding/fractionalfunding/pkg/config"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

// Gateway answers whether an investor passed KYC.
type Gateway interface {
	IsApproved(ctx context.Context, investorID string) (bool, error)
}

// HTTPGateway queries the KYC service over HTTP.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway builds a gateway against cfg.BaseURL.
func NewHTTPGateway(cfg config.KycConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// IsApproved calls GET {base}/v1/kyc/{investor}/status.
func (g *HTTPGateway) IsApproved(ctx context.Context, investorID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/kyc/%s/status", g.baseURL, url.PathEscape(investorID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		logger.Error(ctx, "kyc status lookup failed", "investor_id", investorID, "error", err)
		return false, fmt.Errorf("kyc lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("kyc lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Approved bool `json:"approved"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("kyc lookup: %w", err)
	}
	return body.Approved, nil
}

// AllowAll approves everyone; used in dev and tests.
type AllowAll struct{}

// IsApproved always returns true.
func (AllowAll) IsApproved(ctx context.Context, investorID string) (bool, error) {
	return true, nil
}

// NewGateway picks the implementation from config.
func NewGateway(cfg config.KycConfig) Gateway {
	if cfg.Mode == "http" {
		return NewHTTPGateway(cfg)
	}
	return AllowAll{}
}
