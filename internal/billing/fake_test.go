package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
)

// fakeGateway records calls and serves a configurable catalog.
type fakeGateway struct {
	mu sync.Mutex

	products []Product
	prices   []Price
	listErr  error

	paymentStatus string
	paymentError  string

	attached  []string
	detached  []string
	created   []string
	updated   []string
	cancelled []string
	nextID    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		products: []Product{
			{ID: "prod_adv", Name: "Advanced", Active: true, Metadata: map[string]string{"type": "advanced"}},
			{ID: "prod_basic", Name: "Basic", Active: true, Metadata: map[string]string{"type": "basic"}},
		},
		prices: []Price{
			{ID: "price_adv", ProductID: "prod_adv", UnitAmount: 5000, Currency: "usd", Interval: "month", Metadata: map[string]string{"type": "advanced"}},
			{ID: "price_basic", ProductID: "prod_basic", UnitAmount: 1000, Currency: "usd", Interval: "month", Metadata: map[string]string{"type": "basic"}},
		},
	}
}

func (f *fakeGateway) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%d", prefix, f.nextID)
}

func (f *fakeGateway) ListProducts(context.Context) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Product(nil), f.products...), nil
}

func (f *fakeGateway) ListPrices(context.Context) ([]Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Price(nil), f.prices...), nil
}

func (f *fakeGateway) CreateProduct(_ context.Context, spec ProductSpec) (*Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := Product{ID: f.id("prod"), Name: spec.Name, Description: spec.Description, Active: true, Metadata: map[string]string{"type": spec.Type}}
	f.products = append(f.products, p)
	return &p, nil
}

func (f *fakeGateway) CreatePrice(_ context.Context, productID, typ string, spec PriceSpec) (*Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := Price{ID: f.id("price"), ProductID: productID, UnitAmount: spec.UnitAmount, Currency: spec.Currency, Interval: spec.Interval, Metadata: map[string]string{"type": typ}}
	f.prices = append(f.prices, p)
	return &p, nil
}

func (f *fakeGateway) CreateCustomer(context.Context, string, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id("cus"), nil
}

func (f *fakeGateway) UpdateCustomer(context.Context, string, string, string) error { return nil }
func (f *fakeGateway) DeleteCustomer(context.Context, string) error                 { return nil }

func (f *fakeGateway) GetPaymentMethod(_ context.Context, id string) (*PaymentMethod, error) {
	return &PaymentMethod{ID: id, Last4: "4242"}, nil
}

func (f *fakeGateway) AttachPaymentMethod(_ context.Context, _, id string, _ *Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "pm_declined" {
		return apierr.External("Your card was declined.", errors.New("card_declined"))
	}
	f.attached = append(f.attached, id)
	return nil
}

func (f *fakeGateway) DetachPaymentMethod(_ context.Context, _, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = append(f.detached, id)
	return nil
}

func (f *fakeGateway) CreateSubscription(_ context.Context, _, priceID string) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, priceID)
	status := f.paymentStatus
	if status == "" {
		status = "requires_confirmation"
	}
	return &Subscription{ID: f.id("sub"), Status: "incomplete", ClientSecret: "secret", PaymentStatus: status, PaymentError: f.paymentError}, nil
}

func (f *fakeGateway) UpdateSubscription(_ context.Context, id, priceID string) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, id+":"+priceID)
	return &Subscription{ID: id, Status: "active"}, nil
}

func (f *fakeGateway) CancelSubscription(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}
