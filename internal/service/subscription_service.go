package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

var (
	ErrInvalidPlan           = errors.New("unknown plan tier")
	ErrPaymentAmountMismatch = errors.New("payment amount does not match plan price")
	ErrPaymentFailed         = errors.New("payment confirmation failed")
	ErrSubscriptionNotFound  = errors.New("no active subscription")
)

const billingPeriod = 30 * 24 * time.Hour

type CheckoutInput struct {
	PaymentKey string
	OrderID    string
	Tier       domain.PlanTier
	AmountKRW  int64
}

type SubscriptionService struct {
	subscriptions ports.SubscriptionRepository
	users         ports.UserRepository
	gateway       ports.PaymentGateway
	now           func() time.Time
}

func NewSubscriptionService(subscriptions ports.SubscriptionRepository, users ports.UserRepository, gateway ports.PaymentGateway) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		users:         users,
		gateway:       gateway,
		now:           time.Now,
	}
}

func (s *SubscriptionService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *SubscriptionService) Plans() []domain.PlanLimits {
	return domain.AllPlans()
}

// ConfirmCheckout finishes a Toss checkout. The order id is the idempotency
// key: replaying a confirmed order returns the stored subscription without
// touching the gateway again.
func (s *SubscriptionService) ConfirmCheckout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*domain.Subscription, error) {
	input.OrderID = strings.TrimSpace(input.OrderID)
	input.PaymentKey = strings.TrimSpace(input.PaymentKey)
	if input.OrderID == "" || input.PaymentKey == "" {
		return nil, fmt.Errorf("%w: missing payment key or order id", ErrPaymentFailed)
	}
	if !input.Tier.Valid() || input.Tier == domain.PlanFree {
		return nil, ErrInvalidPlan
	}
	limits := domain.LimitsFor(input.Tier)
	if input.AmountKRW != limits.PriceKRW {
		return nil, fmt.Errorf("%w: got %d, plan costs %d", ErrPaymentAmountMismatch, input.AmountKRW, limits.PriceKRW)
	}

	if existing, err := s.subscriptions.FindPaymentByOrderID(ctx, input.OrderID); err == nil && existing != nil {
		if existing.UserID != userID {
			return nil, ErrForbidden
		}
		return s.subscriptions.FindByUser(ctx, userID)
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}

	confirmation, err := s.gateway.ConfirmPayment(ctx, input.PaymentKey, input.OrderID, input.AmountKRW)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	now := s.now()
	if _, err := s.subscriptions.RecordPayment(ctx, &domain.Payment{
		UserID:      userID,
		OrderID:     confirmation.OrderID,
		PaymentKey:  confirmation.PaymentKey,
		Tier:        input.Tier,
		AmountKRW:   confirmation.AmountKRW,
		ApprovedAt:  confirmation.ApprovedAt,
		RawResponse: confirmation.Raw,
	}); err != nil {
		// a concurrent confirm for the same order already landed
		if isUniqueViolation(err) {
			return s.subscriptions.FindByUser(ctx, userID)
		}
		return nil, err
	}

	orderID := confirmation.OrderID
	sub, err := s.subscriptions.Upsert(ctx, &domain.Subscription{
		UserID:           userID,
		Tier:             input.Tier,
		Status:           domain.SubscriptionStatusActive,
		LastOrderID:      &orderID,
		CurrentPeriodEnd: now.Add(billingPeriod),
	})
	if err != nil {
		return nil, err
	}
	if err := s.users.SetPlan(ctx, userID, input.Tier, limits.MonthlyAICredits); err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel marks the subscription canceled. The paid tier stays in effect
// until the current period ends; Current downgrades it after that.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptions.FindByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	if sub.Status == domain.SubscriptionStatusCanceled {
		return sub, nil
	}

	now := s.now()
	sub.Status = domain.SubscriptionStatusCanceled
	sub.CanceledAt = &now
	return s.subscriptions.Upsert(ctx, sub)
}

// Current returns the user's subscription, lazily downgrading the account to
// the free tier once a canceled or lapsed period has run out.
func (s *SubscriptionService) Current(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptions.FindByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	if sub.Tier != domain.PlanFree && s.now().After(sub.CurrentPeriodEnd) {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user.Plan != domain.PlanFree {
			free := domain.LimitsFor(domain.PlanFree)
			if err := s.users.SetPlan(ctx, userID, domain.PlanFree, free.MonthlyAICredits); err != nil {
				return nil, err
			}
		}
		if sub.Status == domain.SubscriptionStatusActive {
			sub.Status = domain.SubscriptionStatusPastDue
			if sub, err = s.subscriptions.Upsert(ctx, sub); err != nil {
				return nil, err
			}
		}
	}
	return sub, nil
}
