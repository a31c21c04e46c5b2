// Package email sends transactional notices to card holders.
package email

import (
	"fmt"

	"github.com/bingocast/bingocast-go/pkg/config"
	"github.com/resendlabs/resend-go"
)

// Service defines the notice surface, allowing mock implementations in tests.
type Service interface {
	SendCompensationNotice(toEmail, episodeTitle, compensationRef string, amountCents int64) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client *resend.Client
	from   string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}
	return &ResendClient{
		client: resend.NewClient(config.ResendAPIKey),
		from:   config.EmailFromSender,
	}, nil
}

// SendCompensationNotice tells a holder their entry payment was refunded.
func (c *ResendClient) SendCompensationNotice(toEmail, episodeTitle, compensationRef string, amountCents int64) error {
	subject := fmt.Sprintf("Your entry for %q was refunded", episodeTitle)

	html := fmt.Sprintf(
		`<p>Your card for <strong>%s</strong> could not be issued, so we refunded your payment of $%.2f.</p>
<p>Refund reference: <code>%s</code></p>
<p>The refund should appear on your statement within a few business days.</p>`,
		episodeTitle, float64(amountCents)/100, compensationRef,
	)

	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{toEmail},
		Subject: subject,
		Html:    html,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send compensation notice via Resend: %w", err)
	}
	return nil
}
