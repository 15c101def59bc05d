package domain

import (
	"time"

	"github.com/google/uuid"
)

type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanPro      PlanTier = "pro"
	PlanBusiness PlanTier = "business"
)

func (p PlanTier) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanBusiness:
		return true
	}
	return false
}

// PlanLimits describes what a tier is entitled to. GuidebookLimit of -1 means
// unlimited.
type PlanLimits struct {
	Tier             PlanTier `json:"tier"`
	GuidebookLimit   int      `json:"guidebook_limit"`
	MonthlyAICredits int      `json:"monthly_ai_credits"`
	PriceKRW         int64    `json:"price_krw"`
}

var planLimits = map[PlanTier]PlanLimits{
	PlanFree:     {Tier: PlanFree, GuidebookLimit: 1, MonthlyAICredits: 10, PriceKRW: 0},
	PlanPro:      {Tier: PlanPro, GuidebookLimit: 5, MonthlyAICredits: 200, PriceKRW: 9900},
	PlanBusiness: {Tier: PlanBusiness, GuidebookLimit: -1, MonthlyAICredits: 1000, PriceKRW: 29900},
}

func LimitsFor(tier PlanTier) PlanLimits {
	if limits, ok := planLimits[tier]; ok {
		return limits
	}
	return planLimits[PlanFree]
}

func AllPlans() []PlanLimits {
	return []PlanLimits{planLimits[PlanFree], planLimits[PlanPro], planLimits[PlanBusiness]}
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

type Subscription struct {
	ID               uuid.UUID          `db:"id" json:"id"`
	UserID           uuid.UUID          `db:"user_id" json:"user_id"`
	Tier             PlanTier           `db:"tier" json:"tier"`
	Status           SubscriptionStatus `db:"status" json:"status"`
	BillingKey       *string            `db:"billing_key" json:"-"`
	LastOrderID      *string            `db:"last_order_id" json:"last_order_id,omitempty"`
	CurrentPeriodEnd time.Time          `db:"current_period_end" json:"current_period_end"`
	CanceledAt       *time.Time         `db:"canceled_at" json:"canceled_at,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && now.Before(s.CurrentPeriodEnd)
}

// Payment mirrors one confirmed Toss payment. OrderID is the idempotency key.
type Payment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	OrderID     string    `db:"order_id" json:"order_id"`
	PaymentKey  string    `db:"payment_key" json:"payment_key"`
	Tier        PlanTier  `db:"tier" json:"tier"`
	AmountKRW   int64     `db:"amount_krw" json:"amount_krw"`
	ApprovedAt  time.Time `db:"approved_at" json:"approved_at"`
	RawResponse []byte    `db:"raw_response" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
