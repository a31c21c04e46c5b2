// Package streaming manages signal subscriptions with the streaming
// platform so external-signal triggers reach the callback endpoint.
package streaming

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/pkg/config"
)

// Platform is the subscription surface the episode lifecycle depends on.
type Platform interface {
	// Subscribe registers a callback for one signal type on the
	// broadcaster's channel and returns the platform's subscription ID
	// and the shared secret it will sign callbacks with.
	Subscribe(ctx context.Context, broadcasterID, signalType string) (subscriptionID, secret string, err error)
	// Unsubscribe tears down a subscription created by Subscribe.
	Unsubscribe(ctx context.Context, subscriptionID string) error
}

// HTTPPlatform implements Platform over the platform's REST API.
type HTTPPlatform struct {
	baseURL     string
	callbackURL string
	client      *http.Client
}

// NewHTTPPlatform builds a platform client from global configuration.
func NewHTTPPlatform() *HTTPPlatform {
	return &HTTPPlatform{
		baseURL:     config.StreamingAPIBaseURL,
		callbackURL: config.StreamingCallbackURL,
		client:      &http.Client{Timeout: config.UpstreamTimeout},
	}
}

type subscribeRequest struct {
	BroadcasterID string `json:"broadcasterId"`
	SignalType    string `json:"signalType"`
	CallbackURL   string `json:"callbackUrl"`
}

type subscribeResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	Secret         string `json:"secret"`
}

func (p *HTTPPlatform) Subscribe(ctx context.Context, broadcasterID, signalType string) (string, string, error) {
	body, err := json.Marshal(subscribeRequest{
		BroadcasterID: broadcasterID,
		SignalType:    signalType,
		CallbackURL:   p.callbackURL,
	})
	if err != nil {
		return "", "", domainerrors.NewUpstreamRejection(err, "failed to encode subscription request")
	}

	url := fmt.Sprintf("%s/v1/subscriptions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", domainerrors.NewUpstreamRejection(err, "failed to build subscription request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", domainerrors.NewUpstreamTransient(err, "subscription call failed for %s/%s", broadcasterID, signalType)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", "", domainerrors.NewUpstreamTransient(nil, "platform returned %d subscribing %s/%s", resp.StatusCode, broadcasterID, signalType)
	default:
		return "", "", domainerrors.NewUpstreamRejection(nil, "platform rejected subscription %s/%s with %d", broadcasterID, signalType, resp.StatusCode)
	}

	var sub subscribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return "", "", domainerrors.NewUpstreamTransient(err, "malformed subscription response for %s/%s", broadcasterID, signalType)
	}
	if sub.SubscriptionID == "" || sub.Secret == "" {
		return "", "", domainerrors.NewUpstreamRejection(nil, "platform returned incomplete subscription for %s/%s", broadcasterID, signalType)
	}
	return sub.SubscriptionID, sub.Secret, nil
}

func (p *HTTPPlatform) Unsubscribe(ctx context.Context, subscriptionID string) error {
	url := fmt.Sprintf("%s/v1/subscriptions/%s", p.baseURL, subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return domainerrors.NewUpstreamRejection(err, "failed to build unsubscribe request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domainerrors.NewUpstreamTransient(err, "unsubscribe call failed for %s", subscriptionID)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		// Already gone counts as unsubscribed.
		return nil
	case resp.StatusCode >= 500:
		return domainerrors.NewUpstreamTransient(nil, "platform returned %d unsubscribing %s", resp.StatusCode, subscriptionID)
	default:
		return domainerrors.NewUpstreamRejection(nil, "platform rejected unsubscribe %s with %d", subscriptionID, resp.StatusCode)
	}
}
