// Package payments talks to the upstream payment processor for charges
// and compensations.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/pkg/config"
)

// Processor is the upstream payment surface the mint and compensation
// flows depend on.
type Processor interface {
	// CreatePendingCharge opens a charge on the processor for a paid entry
	// and returns the processor-assigned external reference. The reference
	// is never accepted from clients; it only ever originates here.
	CreatePendingCharge(ctx context.Context, episodeID, userID string, amountCents int64) (string, error)
	// ConfirmCharge verifies that an external payment reference is real,
	// captured, and covers the given amount.
	ConfirmCharge(ctx context.Context, externalRef string, amountCents int64) error
	// IssueCompensation refunds a captured charge. Called at most once per
	// payment; never retried.
	IssueCompensation(ctx context.Context, externalRef string, amountCents int64, reason string) (string, error)
}

// HTTPProcessor implements Processor over the processor's REST API.
type HTTPProcessor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProcessor builds a processor client from global configuration.
func NewHTTPProcessor() *HTTPProcessor {
	return &HTTPProcessor{
		baseURL: config.PaymentAPIBaseURL,
		apiKey:  config.PaymentAPIKey,
		client:  &http.Client{Timeout: config.UpstreamTimeout},
	}
}

type chargeLookupResponse struct {
	Status      string `json:"status"`
	AmountCents int64  `json:"amountCents"`
}

type createChargeRequest struct {
	EpisodeID   string `json:"episodeId"`
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amountCents"`
}

type createChargeResponse struct {
	ExternalRef string `json:"externalRef"`
}

type compensationRequest struct {
	ExternalRef string `json:"externalRef"`
	AmountCents int64  `json:"amountCents"`
	Reason      string `json:"reason"`
}

type compensationResponse struct {
	CompensationRef string `json:"compensationRef"`
}

func (p *HTTPProcessor) CreatePendingCharge(ctx context.Context, episodeID, userID string, amountCents int64) (string, error) {
	body, err := json.Marshal(createChargeRequest{
		EpisodeID:   episodeID,
		UserID:      userID,
		AmountCents: amountCents,
	})
	if err != nil {
		return "", domainerrors.NewUpstreamRejection(err, "failed to encode charge for %s/%s", episodeID, userID)
	}

	url := fmt.Sprintf("%s/v1/charges", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", domainerrors.NewUpstreamRejection(err, "failed to build charge creation request")
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	// Processor-side dedup key so a retried creation reuses the same charge.
	req.Header.Set("Idempotency-Key", episodeID+":"+userID)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", domainerrors.NewUpstreamTransient(err, "charge creation failed for %s/%s", episodeID, userID)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", domainerrors.NewUpstreamTransient(nil, "processor returned %d creating charge for %s/%s", resp.StatusCode, episodeID, userID)
	default:
		return "", domainerrors.NewUpstreamRejection(nil, "processor rejected charge creation for %s/%s with %d", episodeID, userID, resp.StatusCode)
	}

	var charge createChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return "", domainerrors.NewUpstreamTransient(err, "malformed charge creation response for %s/%s", episodeID, userID)
	}
	if charge.ExternalRef == "" {
		return "", domainerrors.NewUpstreamRejection(nil, "processor returned no reference for charge %s/%s", episodeID, userID)
	}
	return charge.ExternalRef, nil
}

func (p *HTTPProcessor) ConfirmCharge(ctx context.Context, externalRef string, amountCents int64) error {
	url := fmt.Sprintf("%s/v1/charges/%s", p.baseURL, externalRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domainerrors.NewUpstreamRejection(err, "failed to build charge lookup request")
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return domainerrors.NewUpstreamTransient(err, "charge lookup failed for %s", externalRef)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domainerrors.NewUpstreamTransient(nil, "processor returned %d for charge %s", resp.StatusCode, externalRef)
	default:
		return domainerrors.NewUpstreamRejection(nil, "processor rejected charge lookup %s with %d", externalRef, resp.StatusCode)
	}

	var charge chargeLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return domainerrors.NewUpstreamTransient(err, "malformed charge lookup response for %s", externalRef)
	}
	if charge.Status != "captured" {
		return domainerrors.NewUpstreamRejection(nil, "charge %s is %s, not captured", externalRef, charge.Status)
	}
	if charge.AmountCents < amountCents {
		return domainerrors.NewUpstreamRejection(nil, "charge %s covers %d of %d cents", externalRef, charge.AmountCents, amountCents)
	}
	return nil
}

func (p *HTTPProcessor) IssueCompensation(ctx context.Context, externalRef string, amountCents int64, reason string) (string, error) {
	body, err := json.Marshal(compensationRequest{
		ExternalRef: externalRef,
		AmountCents: amountCents,
		Reason:      reason,
	})
	if err != nil {
		return "", domainerrors.NewCompensationFailure(err, "failed to encode compensation for %s", externalRef)
	}

	url := fmt.Sprintf("%s/v1/compensations", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", domainerrors.NewCompensationFailure(err, "failed to build compensation request for %s", externalRef)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	// Processor-side dedup key so a network-level duplicate cannot double-refund.
	req.Header.Set("Idempotency-Key", externalRef)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", domainerrors.NewCompensationFailure(err, "compensation call failed for %s", externalRef)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", domainerrors.NewCompensationFailure(nil, "processor returned %d for compensation of %s: %s", resp.StatusCode, externalRef, string(raw))
	}

	var comp compensationResponse
	if err := json.NewDecoder(resp.Body).Decode(&comp); err != nil {
		return "", domainerrors.NewCompensationFailure(err, "malformed compensation response for %s", externalRef)
	}
	if comp.CompensationRef == "" {
		comp.CompensationRef = fmt.Sprintf("comp-%s-%d", externalRef, time.Now().Unix())
	}
	return comp.CompensationRef, nil
}
