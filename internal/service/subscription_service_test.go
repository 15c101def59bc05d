package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

type fakeSubscriptionRepo struct {
	subs     map[uuid.UUID]*domain.Subscription
	payments map[string]*domain.Payment
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{
		subs:     map[uuid.UUID]*domain.Subscription{},
		payments: map[string]*domain.Payment{},
	}
}

func (r *fakeSubscriptionRepo) Upsert(_ context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	clone := *sub
	if existing, ok := r.subs[sub.UserID]; ok {
		clone.ID = existing.ID
		clone.CreatedAt = existing.CreatedAt
	} else {
		clone.ID = uuid.New()
		clone.CreatedAt = time.Now()
	}
	clone.UpdatedAt = time.Now()
	r.subs[clone.UserID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeSubscriptionRepo) FindByUser(_ context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, ok := r.subs[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *sub
	return &out, nil
}

func (r *fakeSubscriptionRepo) RecordPayment(_ context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if _, dup := r.payments[payment.OrderID]; dup {
		return nil, errUnique
	}
	clone := *payment
	clone.ID = uuid.New()
	clone.CreatedAt = time.Now()
	r.payments[clone.OrderID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeSubscriptionRepo) FindPaymentByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	payment, ok := r.payments[orderID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *payment
	return &out, nil
}

type fakeGateway struct {
	confirms int
	cancels  int
	err      error
}

func (g *fakeGateway) ConfirmPayment(_ context.Context, paymentKey, orderID string, amountKRW int64) (*ports.PaymentConfirmation, error) {
	g.confirms++
	if g.err != nil {
		return nil, g.err
	}
	return &ports.PaymentConfirmation{
		PaymentKey: paymentKey,
		OrderID:    orderID,
		AmountKRW:  amountKRW,
		ApprovedAt: time.Now(),
		Raw:        []byte(`{"status":"DONE"}`),
	}, nil
}

func (g *fakeGateway) CancelPayment(_ context.Context, paymentKey, reason string) error {
	g.cancels++
	return g.err
}

func newSubscriptionFixture(t *testing.T) (*SubscriptionService, *fakeSubscriptionRepo, *fakeUserRepo, *fakeGateway, *domain.User) {
	t.Helper()
	subs := newFakeSubscriptionRepo()
	users := newFakeUserRepo()
	gateway := &fakeGateway{}
	user := seedUser(t, users, domain.PlanFree)
	return NewSubscriptionService(subs, users, gateway), subs, users, gateway, user
}

func proCheckout(orderID string) CheckoutInput {
	return CheckoutInput{
		PaymentKey: "pay_" + orderID,
		OrderID:    orderID,
		Tier:       domain.PlanPro,
		AmountKRW:  domain.LimitsFor(domain.PlanPro).PriceKRW,
	}
}

func TestSubscriptionConfirmCheckout(t *testing.T) {
	ctx := context.Background()
	svc, _, users, gateway, user := newSubscriptionFixture(t)

	sub, err := svc.ConfirmCheckout(ctx, user.ID, proCheckout("order-1"))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if sub.Tier != domain.PlanPro || sub.Status != domain.SubscriptionStatusActive {
		t.Fatalf("unexpected subscription %+v", sub)
	}

	upgraded, _ := users.FindByID(ctx, user.ID)
	if upgraded.Plan != domain.PlanPro {
		t.Fatalf("expected plan upgrade, got %q", upgraded.Plan)
	}
	if upgraded.AICredits != domain.LimitsFor(domain.PlanPro).MonthlyAICredits {
		t.Fatalf("expected pro credit grant, got %d", upgraded.AICredits)
	}

	t.Run("replay of the same order is idempotent", func(t *testing.T) {
		again, err := svc.ConfirmCheckout(ctx, user.ID, proCheckout("order-1"))
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if again.ID != sub.ID {
			t.Fatal("expected the stored subscription back")
		}
		if gateway.confirms != 1 {
			t.Fatalf("expected gateway untouched on replay, got %d confirms", gateway.confirms)
		}
	})

	t.Run("another user cannot replay the order", func(t *testing.T) {
		stranger := seedUser(t, users, domain.PlanFree)
		if _, err := svc.ConfirmCheckout(ctx, stranger.ID, proCheckout("order-1")); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestSubscriptionCheckoutValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, gateway, user := newSubscriptionFixture(t)

	t.Run("amount mismatch", func(t *testing.T) {
		input := proCheckout("order-2")
		input.AmountKRW = 100
		if _, err := svc.ConfirmCheckout(ctx, user.ID, input); !errors.Is(err, ErrPaymentAmountMismatch) {
			t.Fatalf("expected ErrPaymentAmountMismatch, got %v", err)
		}
		if gateway.confirms != 0 {
			t.Fatal("gateway must not be called for a bad amount")
		}
	})

	t.Run("free tier is not purchasable", func(t *testing.T) {
		input := CheckoutInput{PaymentKey: "p", OrderID: "order-3", Tier: domain.PlanFree, AmountKRW: 0}
		if _, err := svc.ConfirmCheckout(ctx, user.ID, input); !errors.Is(err, ErrInvalidPlan) {
			t.Fatalf("expected ErrInvalidPlan, got %v", err)
		}
	})

	t.Run("gateway failure surfaces as payment failed", func(t *testing.T) {
		gateway.err = errors.New("card declined")
		defer func() { gateway.err = nil }()
		if _, err := svc.ConfirmCheckout(ctx, user.ID, proCheckout("order-4")); !errors.Is(err, ErrPaymentFailed) {
			t.Fatalf("expected ErrPaymentFailed, got %v", err)
		}
	})
}

func TestSubscriptionCancelAndLapse(t *testing.T) {
	ctx := context.Background()
	svc, _, users, _, user := newSubscriptionFixture(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	svc.SetClock(func() time.Time { return clock })

	if _, err := svc.ConfirmCheckout(ctx, user.ID, proCheckout("order-5")); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	canceled, err := svc.Cancel(ctx, user.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != domain.SubscriptionStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("unexpected canceled sub %+v", canceled)
	}

	t.Run("tier persists until period end", func(t *testing.T) {
		clock = base.Add(24 * time.Hour)
		if _, err := svc.Current(ctx, user.ID); err != nil {
			t.Fatalf("current: %v", err)
		}
		stored, _ := users.FindByID(ctx, user.ID)
		if stored.Plan != domain.PlanPro {
			t.Fatalf("expected pro until period end, got %q", stored.Plan)
		}
	})

	t.Run("lapsed period downgrades to free", func(t *testing.T) {
		clock = base.Add(31 * 24 * time.Hour)
		if _, err := svc.Current(ctx, user.ID); err != nil {
			t.Fatalf("current: %v", err)
		}
		stored, _ := users.FindByID(ctx, user.ID)
		if stored.Plan != domain.PlanFree {
			t.Fatalf("expected downgrade to free, got %q", stored.Plan)
		}
	})

	t.Run("cancel without subscription", func(t *testing.T) {
		nobody := seedUser(t, users, domain.PlanFree)
		if _, err := svc.Cancel(ctx, nobody.ID); !errors.Is(err, ErrSubscriptionNotFound) {
			t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
		}
	})
}
