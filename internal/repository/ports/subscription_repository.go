package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	RecordPayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	FindPaymentByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
}
