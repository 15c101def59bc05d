package ports

import (
	"context"
	"time"

	"github.com/roomyhq/roomy-server/internal/domain"
)

// PaymentConfirmation is what the payment gateway reports for a confirmed
// checkout.
type PaymentConfirmation struct {
	PaymentKey string
	OrderID    string
	AmountKRW  int64
	ApprovedAt time.Time
	Raw        []byte
}

// PaymentGateway abstracts the Toss Payments REST API.
type PaymentGateway interface {
	ConfirmPayment(ctx context.Context, paymentKey, orderID string, amountKRW int64) (*PaymentConfirmation, error)
	CancelPayment(ctx context.Context, paymentKey, reason string) error
}

// ChatCompleter abstracts the LLM used for content generation and the guest
// chatbot.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ListingFetcher retrieves and parses a rental listing page into metadata.
type ListingFetcher interface {
	Fetch(ctx context.Context, listingURL string) (*domain.ScrapedListing, error)
}
