package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"market-chat/internal/domain"
)

// EligibilityChecker es el colaborador holder/creator: decide si una wallet
// tiene saldo mínimo de shares en el mercado o es su creadora. Va por
// encima de la autenticación, no la reemplaza.
type EligibilityChecker interface {
	CanParticipate(ctx context.Context, address string, market domain.MarketKey) (bool, error)
}

// HTTPEligibility consulta el servicio externo de holders.
type HTTPEligibility struct {
	baseURL string
	client  *http.Client
}

func NewHTTPEligibility(baseURL string) *HTTPEligibility {
	return &HTTPEligibility{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (e *HTTPEligibility) CanParticipate(ctx context.Context, address string, market domain.MarketKey) (bool, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("market_id", market.MarketID)
	q.Set("contract_address", market.ContractAddress)
	q.Set("network", market.Network)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/holders/check?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("holder service status %d", resp.StatusCode)
	}

	var out struct {
		Eligible bool `json:"eligible"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return out.Eligible, nil
}

// AllowAllEligibility deja pasar a cualquiera; útil en desarrollo cuando el
// colaborador de holders no está configurado.
type AllowAllEligibility struct{}

func (AllowAllEligibility) CanParticipate(context.Context, string, domain.MarketKey) (bool, error) {
	return true, nil
}
