// Package billing adapts the payment processor: plan catalog, customers,
// payment methods, subscriptions and invoice webhooks.
package billing

import "context"

// Product is a sellable plan. Metadata["type"] names the subscription type.
type Product struct {
	ID          string
	Name        string
	Description string
	Active      bool
	Metadata    map[string]string
}

// Price is a recurring price of a product.
type Price struct {
	ID         string
	ProductID  string
	UnitAmount int64
	Currency   string
	Interval   string
	Metadata   map[string]string
}

// Type returns the subscription type carried in the metadata.
func (p Price) Type() string { return p.Metadata["type"] }

type PaymentMethod struct {
	ID    string
	Last4 string
}

// Address is the optional billing address stored on the customer.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Subscription is the part of a processor subscription the service needs.
type Subscription struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ItemID       string `json:"-"`
	ClientSecret string `json:"clientSecret,omitempty"`
	// PaymentStatus is the status of the latest invoice's payment intent.
	PaymentStatus string `json:"paymentStatus,omitempty"`
	PaymentError  string `json:"-"`
}

// ProductSpec and PriceSpec describe plans to create when seeding the catalog.
type ProductSpec struct {
	Type        string
	Name        string
	Description string
}

type PriceSpec struct {
	UnitAmount int64
	Currency   string
	Interval   string
}

// Gateway is the narrow interface to the payment processor.
type Gateway interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListPrices(ctx context.Context) ([]Price, error)
	CreateProduct(ctx context.Context, spec ProductSpec) (*Product, error)
	CreatePrice(ctx context.Context, productID, typ string, spec PriceSpec) (*Price, error)

	CreateCustomer(ctx context.Context, name, email string) (string, error)
	UpdateCustomer(ctx context.Context, customerID, name, email string) error
	DeleteCustomer(ctx context.Context, customerID string) error

	GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error)
	// AttachPaymentMethod attaches the method and makes it the customer's default.
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string, addr *Address) error
	DetachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	CreateSubscription(ctx context.Context, customerID, priceID string) (*Subscription, error)
	// UpdateSubscription swaps the price of the subscription's single item.
	UpdateSubscription(ctx context.Context, subscriptionID, priceID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}
