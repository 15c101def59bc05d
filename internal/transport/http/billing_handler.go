package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/service"
	"github.com/roomyhq/roomy-server/internal/util"
)

type BillingHandler struct {
	subscriptions *service.SubscriptionService
}

func RegisterBilling(e *echo.Echo, auth *service.AuthService, subscriptions *service.SubscriptionService) {
	handler := &BillingHandler{subscriptions: subscriptions}

	group := e.Group("/api/v1/billing")
	group.GET("/plans", handler.plans)
	group.POST("/checkout/confirm", handler.confirmCheckout, RequireAuth(auth))
	group.POST("/cancel", handler.cancel, RequireAuth(auth))
	group.GET("/subscription", handler.current, RequireAuth(auth))
}

func (h *BillingHandler) plans(c echo.Context) error {
	return c.JSON(http.StatusOK, util.Envelope{"plans": h.subscriptions.Plans()})
}

func (h *BillingHandler) confirmCheckout(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req struct {
		PaymentKey string `json:"payment_key"`
		OrderID    string `json:"order_id"`
		Tier       string `json:"tier"`
		AmountKRW  int64  `json:"amount_krw"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	subscription, err := h.subscriptions.ConfirmCheckout(c.Request().Context(), user.ID, service.CheckoutInput{
		PaymentKey: req.PaymentKey,
		OrderID:    req.OrderID,
		Tier:       domain.PlanTier(req.Tier),
		AmountKRW:  req.AmountKRW,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPlan):
			return c.JSON(http.StatusBadRequest, util.Error("tier must be pro or business"))
		case errors.Is(err, service.ErrPaymentAmountMismatch):
			return c.JSON(http.StatusBadRequest, util.Error("amount does not match the plan price"))
		case errors.Is(err, service.ErrPaymentFailed):
			return c.JSON(http.StatusBadGateway, util.Error("payment confirmation failed"))
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, util.Error("this order belongs to another account"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not confirm checkout"))
		}
	}
	return c.JSON(http.StatusOK, util.Envelope{"subscription": subscription})
}

func (h *BillingHandler) cancel(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	subscription, err := h.subscriptions.Cancel(c.Request().Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			return c.JSON(http.StatusNotFound, util.Error("no active subscription"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("could not cancel subscription"))
	}
	return c.JSON(http.StatusOK, util.Envelope{"subscription": subscription})
}

func (h *BillingHandler) current(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	subscription, err := h.subscriptions.Current(c.Request().Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			return c.JSON(http.StatusOK, util.Envelope{"subscription": nil, "tier": domain.PlanFree})
		}
		return c.JSON(http.StatusInternalServerError, util.Error("could not load subscription"))
	}
	return c.JSON(http.StatusOK, util.Envelope{"subscription": subscription, "tier": subscription.Tier})
}
