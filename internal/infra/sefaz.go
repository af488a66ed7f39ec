package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SEFAZ authorization endpoints per environment. The gateway fronts the
// state web services and speaks JSON to us.
var sefazEndpoints = map[string]string{
	"homologacao": "https://homologacao.nfce.fazenda.gov.br/ws/nfceautorizacao",
	"producao":    "https://nfce.fazenda.gov.br/ws/nfceautorizacao",
}

// SefazSubmission is what the worker sends for authorization.
type SefazSubmission struct {
	AccessKey   string `json:"accessKey"`
	XML         string `json:"xml"`
	Environment string `json:"environment"`
}

// SefazResponse is the gateway's authorization verdict.
type SefazResponse struct {
	Success  bool   `json:"success"`
	Protocol string `json:"protocol"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

// SefazClient submits NFC-e documents to the authorization gateway.
// Transient transport failures are the caller's concern (retry + breaker).
type SefazClient struct {
	baseURL    string // overrides the per-environment default when set
	httpClient *http.Client
}

func NewSefazClient(baseURL string, timeout time.Duration) *SefazClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SefazClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *SefazClient) endpoint(environment string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	if url, ok := sefazEndpoints[environment]; ok {
		return url
	}
	return sefazEndpoints["homologacao"]
}

// Submit posts the signed XML for authorization and returns the verdict.
func (c *SefazClient) Submit(ctx context.Context, sub SefazSubmission) (*SefazResponse, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("sefaz: marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(sub.Environment), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sefaz: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sefaz: gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("sefaz: gateway returned %d", resp.StatusCode)
	}

	var result SefazResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("sefaz: decode response: %w", err)
	}
	return &result, nil
}
