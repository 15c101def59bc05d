package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

const subscriptionColumns = `id, user_id, tier, status, billing_key, last_order_id,
	       current_period_end, canceled_at, created_at, updated_at`

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepo(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	const query = `
		INSERT INTO subscriptions (user_id, tier, status, billing_key, last_order_id, current_period_end, canceled_at)
		VALUES (:user_id, :tier, :status, :billing_key, :last_order_id, :current_period_end, :canceled_at)
		ON CONFLICT (user_id) DO UPDATE
		SET tier = EXCLUDED.tier,
		    status = EXCLUDED.status,
		    billing_key = COALESCE(EXCLUDED.billing_key, subscriptions.billing_key),
		    last_order_id = COALESCE(EXCLUDED.last_order_id, subscriptions.last_order_id),
		    current_period_end = EXCLUDED.current_period_end,
		    canceled_at = EXCLUDED.canceled_at,
		    updated_at = NOW()
		RETURNING ` + subscriptionColumns

	args := map[string]any{
		"user_id":            sub.UserID,
		"tier":               sub.Tier,
		"status":             sub.Status,
		"billing_key":        nullString(sub.BillingKey),
		"last_order_id":      nullString(sub.LastOrderID),
		"current_period_end": sub.CurrentPeriodEnd,
		"canceled_at":        sub.CanceledAt,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		var saved domain.Subscription
		if err = rows.StructScan(&saved); err != nil {
			return nil, err
		}
		return &saved, nil
	}
	return nil, sql.ErrNoRows
}

func (r *SubscriptionRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	const query = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	var sub domain.Subscription
	if err := r.db.GetContext(ctx, &sub, query, userID); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) RecordPayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	const query = `
		INSERT INTO payments (user_id, order_id, payment_key, tier, amount_krw, approved_at, raw_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, order_id, payment_key, tier, amount_krw, approved_at, raw_response, created_at
	`
	var saved domain.Payment
	err := r.db.GetContext(ctx, &saved, query,
		payment.UserID, payment.OrderID, payment.PaymentKey,
		payment.Tier, payment.AmountKRW, payment.ApprovedAt, payment.RawResponse)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *SubscriptionRepository) FindPaymentByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	const query = `
		SELECT id, user_id, order_id, payment_key, tier, amount_krw, approved_at, raw_response, created_at
		FROM payments
		WHERE order_id = $1
	`
	var payment domain.Payment
	if err := r.db.GetContext(ctx, &payment, query, orderID); err != nil {
		return nil, err
	}
	return &payment, nil
}

var _ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)
