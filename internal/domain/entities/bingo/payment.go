package bingo

import "time"

// PaymentStatus is the resolution state of a pending payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// PendingPayment tracks an in-flight paid entry attempt. Created before
// payment capture, resolved by the payment-completion trigger. Used both
// to deduplicate completion notifications and to drive compensation.
type PendingPayment struct {
	ID          string        `json:"id"`
	EpisodeID   string        `json:"episodeId"`
	UserID      string        `json:"userId"`
	UserEmail   string        `json:"userEmail,omitempty"`
	ExternalRef string        `json:"externalPaymentRef"`
	AmountCents int64         `json:"amount"`
	Status      PaymentStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	ResolvedAt  *time.Time    `json:"resolvedAt,omitempty"`
}

// Resolved reports whether the payment has already been settled either way.
func (p *PendingPayment) Resolved() bool { return p.Status != PaymentPending }

// Expired reports whether an unresolved payment is past its TTL.
func (p *PendingPayment) Expired(now time.Time) bool {
	return p.Status == PaymentPending && now.After(p.ExpiresAt)
}
