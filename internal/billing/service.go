package billing

import (
	"context"
	"errors"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/models"
	"github.com/teamhub/teamhub/backend/go-services/internal/users"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
	"github.com/teamhub/teamhub/backend/go-services/pkg/metrics"
)

// Invoice event types handled by HandleInvoiceEvent.
const (
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// Service applies billing operations to user accounts.
type Service struct {
	gw      Gateway
	catalog *Catalog
	users   users.Repository
}

func NewService(gw Gateway, catalog *Catalog, repo users.Repository) *Service {
	return &Service{gw: gw, catalog: catalog, users: repo}
}

func (s *Service) Catalog() *Catalog { return s.catalog }

// UpdatePaymentMethod replaces the user's default payment method.
func (s *Service) UpdatePaymentMethod(ctx context.Context, u *models.User, paymentMethodID string, addr *Address) (*models.User, error) {
	if paymentMethodID == "" {
		return nil, apierr.Validation("paymentMethodId is required")
	}
	if u.StripeID == "" {
		return nil, apierr.NotFound("Billing details not found")
	}
	if u.PaymentMethod != nil && u.PaymentMethod.ID != "" && u.PaymentMethod.ID != paymentMethodID {
		if err := s.gw.DetachPaymentMethod(ctx, u.StripeID, u.PaymentMethod.ID); err != nil {
			return nil, err
		}
	}
	if err := s.gw.AttachPaymentMethod(ctx, u.StripeID, paymentMethodID, addr); err != nil {
		return nil, err
	}
	pm, err := s.gw.GetPaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return nil, err
	}
	stored := &models.PaymentMethod{ID: pm.ID, Last4: pm.Last4}
	updated, err := s.users.Update(ctx, u.ID, users.Patch{PaymentMethod: &stored})
	if err != nil {
		return nil, users.TranslateError(err)
	}
	return updated, nil
}

// ChangeSubscription moves the user to the plan typ. Moving to the free tier
// cancels the current subscription and returns a nil subscription. Moving from
// the free tier creates a subscription that the client confirms and then
// reports through CompleteSubscription.
func (s *Service) ChangeSubscription(ctx context.Context, u *models.User, typ string) (*Subscription, *models.User, error) {
	if typ == "" {
		return nil, nil, apierr.Validation("type is required")
	}
	current := u.Subscription.SubscriptionType
	if current == "" {
		current = models.FreeTier
	}
	if typ == current {
		return nil, nil, apierr.Conflict("Subscription plan is already active")
	}

	if typ == models.FreeTier {
		if u.Subscription.ID != "" {
			if err := s.gw.CancelSubscription(ctx, u.Subscription.ID); err != nil {
				return nil, nil, err
			}
		}
		updated, err := s.setSubscription(ctx, u.ID, models.Subscription{SubscriptionType: models.FreeTier})
		return nil, updated, err
	}

	if u.PaymentMethod == nil || u.PaymentMethod.ID == "" {
		return nil, nil, apierr.NotFound("Billing details not found")
	}
	price, err := s.catalog.PriceFor(ctx, typ)
	if err != nil {
		return nil, nil, err
	}

	if current == models.FreeTier || u.Subscription.ID == "" {
		sub, err := s.gw.CreateSubscription(ctx, u.StripeID, price.ID)
		if err != nil {
			return nil, nil, err
		}
		if sub.PaymentStatus == "requires_payment_method" {
			if cerr := s.gw.CancelSubscription(ctx, sub.ID); cerr != nil {
				logger.Warnf("billing: unable to cancel unpaid subscription %s: %v", sub.ID, cerr)
			}
			msg := sub.PaymentError
			if msg == "" {
				msg = "Payment failed"
			}
			return nil, nil, apierr.External(msg, nil)
		}
		return sub, u, nil
	}

	sub, err := s.gw.UpdateSubscription(ctx, u.Subscription.ID, price.ID)
	if err != nil {
		return nil, nil, err
	}
	updated, err := s.setSubscription(ctx, u.ID, models.Subscription{ID: sub.ID, SubscriptionType: typ})
	if err != nil {
		return nil, nil, err
	}
	return sub, updated, nil
}

// CompleteSubscription records a confirmed subscription; its type is read from
// the product metadata.
func (s *Service) CompleteSubscription(ctx context.Context, u *models.User, subscriptionID, productID string) (*models.User, error) {
	if subscriptionID == "" || productID == "" {
		return nil, apierr.Validation("subscriptionId and productId are required")
	}
	product, err := s.catalog.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	typ := product.Metadata["type"]
	if typ == "" {
		return nil, apierr.NotFound("Subscription type not found")
	}
	return s.setSubscription(ctx, u.ID, models.Subscription{ID: subscriptionID, SubscriptionType: typ})
}

// CancelSubscription cancels the caller's own subscription and moves them to the free tier.
func (s *Service) CancelSubscription(ctx context.Context, u *models.User, subscriptionID string) (*models.User, error) {
	if subscriptionID == "" {
		subscriptionID = u.Subscription.ID
	}
	if subscriptionID == "" {
		return nil, apierr.NotFound("Subscription not found")
	}
	if subscriptionID != u.Subscription.ID {
		return nil, apierr.Forbidden("Forbidden")
	}
	if err := s.gw.CancelSubscription(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return s.setSubscription(ctx, u.ID, models.Subscription{SubscriptionType: models.FreeTier})
}

// HandleInvoiceEvent applies an invoice webhook to the customer's account.
// Events for unknown customers and other event types are acknowledged and ignored.
func (s *Service) HandleInvoiceEvent(ctx context.Context, eventType string, inv *Invoice) error {
	metrics.WebhookEvents.WithLabelValues(eventType).Inc()
	if inv == nil {
		return nil
	}
	switch eventType {
	case EventInvoicePaid, EventInvoicePaymentFailed:
	default:
		return nil
	}
	u, err := s.users.GetByStripeID(ctx, inv.CustomerID)
	if errors.Is(err, users.ErrNotFound) {
		logger.Warnf("billing: %s for unknown customer %q", eventType, inv.CustomerID)
		return nil
	}
	if err != nil {
		return apierr.Internal(err)
	}

	if eventType == EventInvoicePaid {
		typ := inv.SubscriptionType
		if typ == "" {
			typ = u.Subscription.SubscriptionType
		}
		_, err := s.setSubscription(ctx, u.ID, models.Subscription{ID: inv.SubscriptionID, SubscriptionType: typ})
		return err
	}

	if inv.SubscriptionID != "" {
		if err := s.gw.CancelSubscription(ctx, inv.SubscriptionID); err != nil {
			logger.Warnf("billing: unable to cancel subscription %s after failed payment: %v", inv.SubscriptionID, err)
		}
	}
	_, err = s.setSubscription(ctx, u.ID, models.Subscription{SubscriptionType: models.FreeTier})
	return err
}

func (s *Service) setSubscription(ctx context.Context, userID string, sub models.Subscription) (*models.User, error) {
	u, err := s.users.Update(ctx, userID, users.Patch{Subscription: &sub})
	if err != nil {
		return nil, users.TranslateError(err)
	}
	logger.Infof("billing: user %s on %s", userID, sub.SubscriptionType)
	return u, nil
}
