package billing

import (
	"context"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
)

// OfflineGateway stands in when no processor key is configured. Customer
// operations succeed without effect; payment operations fail.
type OfflineGateway struct{}

var errOffline = apierr.External("Billing is not configured", nil)

func (OfflineGateway) ListProducts(context.Context) ([]Product, error) { return nil, nil }
func (OfflineGateway) ListPrices(context.Context) ([]Price, error)     { return nil, nil }

func (OfflineGateway) CreateProduct(context.Context, ProductSpec) (*Product, error) {
	return nil, errOffline
}

func (OfflineGateway) CreatePrice(context.Context, string, string, PriceSpec) (*Price, error) {
	return nil, errOffline
}

func (OfflineGateway) CreateCustomer(context.Context, string, string) (string, error) { return "", nil }
func (OfflineGateway) UpdateCustomer(context.Context, string, string, string) error    { return nil }
func (OfflineGateway) DeleteCustomer(context.Context, string) error                    { return nil }

func (OfflineGateway) GetPaymentMethod(context.Context, string) (*PaymentMethod, error) {
	return nil, errOffline
}

func (OfflineGateway) AttachPaymentMethod(context.Context, string, string, *Address) error {
	return errOffline
}

func (OfflineGateway) DetachPaymentMethod(context.Context, string, string) error { return errOffline }

func (OfflineGateway) CreateSubscription(context.Context, string, string) (*Subscription, error) {
	return nil, errOffline
}

func (OfflineGateway) UpdateSubscription(context.Context, string, string) (*Subscription, error) {
	return nil, errOffline
}

func (OfflineGateway) CancelSubscription(context.Context, string) error { return errOffline }
