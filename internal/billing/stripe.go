package billing

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
)

// StripeGateway implements Gateway with the Stripe API.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

// mapStripeError surfaces the processor's message to the caller.
func mapStripeError(err error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return apierr.External(se.Msg, err)
	}
	return apierr.External("Some error occured", err)
}

func (g *StripeGateway) ListProducts(ctx context.Context) ([]Product, error) {
	params := &stripe.ProductListParams{}
	params.Context = ctx
	it := g.api.Products.List(params)
	var out []Product
	for it.Next() {
		p := it.Product()
		out = append(out, Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Active:      p.Active,
			Metadata:    p.Metadata,
		})
	}
	if err := it.Err(); err != nil {
		return nil, mapStripeError(err)
	}
	return out, nil
}

func (g *StripeGateway) ListPrices(ctx context.Context) ([]Price, error) {
	params := &stripe.PriceListParams{}
	params.Context = ctx
	it := g.api.Prices.List(params)
	var out []Price
	for it.Next() {
		out = append(out, convertPrice(it.Price()))
	}
	if err := it.Err(); err != nil {
		return nil, mapStripeError(err)
	}
	return out, nil
}

func convertPrice(p *stripe.Price) Price {
	out := Price{
		ID:         p.ID,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
		Metadata:   p.Metadata,
	}
	if p.Product != nil {
		out.ProductID = p.Product.ID
	}
	if p.Recurring != nil {
		out.Interval = string(p.Recurring.Interval)
	}
	return out
}

func (g *StripeGateway) CreateProduct(ctx context.Context, spec ProductSpec) (*Product, error) {
	params := &stripe.ProductParams{
		Name:        stripe.String(spec.Name),
		Description: stripe.String(spec.Description),
		Active:      stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("type", spec.Type)
	p, err := g.api.Products.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Product{ID: p.ID, Name: p.Name, Description: p.Description, Active: p.Active, Metadata: p.Metadata}, nil
}

func (g *StripeGateway) CreatePrice(ctx context.Context, productID, typ string, spec PriceSpec) (*Price, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(spec.UnitAmount),
		Currency:   stripe.String(spec.Currency),
		Active:     stripe.Bool(true),
		Recurring:  &stripe.PriceRecurringParams{Interval: stripe.String(spec.Interval)},
	}
	params.Context = ctx
	params.AddMetadata("type", typ)
	p, err := g.api.Prices.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	out := convertPrice(p)
	return &out, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, name, email string) (string, error) {
	params := &stripe.CustomerParams{Name: stripe.String(name), Email: stripe.String(email)}
	params.Context = ctx
	c, err := g.api.Customers.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return c.ID, nil
}

func (g *StripeGateway) UpdateCustomer(ctx context.Context, customerID, name, email string) error {
	params := &stripe.CustomerParams{Name: stripe.String(name), Email: stripe.String(email)}
	params.Context = ctx
	_, err := g.api.Customers.Update(customerID, params)
	return mapStripeError(err)
}

func (g *StripeGateway) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	_, err := g.api.Customers.Del(customerID, params)
	return mapStripeError(err)
}

func (g *StripeGateway) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	pm, err := g.api.PaymentMethods.Get(paymentMethodID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	out := &PaymentMethod{ID: pm.ID}
	if pm.Card != nil {
		out.Last4 = pm.Card.Last4
	}
	return out, nil
}

func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string, addr *Address) error {
	attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	attach.Context = ctx
	if _, err := g.api.PaymentMethods.Attach(paymentMethodID, attach); err != nil {
		return mapStripeError(err)
	}
	update := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	if addr != nil {
		update.Address = &stripe.AddressParams{
			Line1:      stripe.String(addr.Line1),
			Line2:      stripe.String(addr.Line2),
			City:       stripe.String(addr.City),
			State:      stripe.String(addr.State),
			PostalCode: stripe.String(addr.PostalCode),
			Country:    stripe.String(addr.Country),
		}
	}
	update.Context = ctx
	_, err := g.api.Customers.Update(customerID, update)
	return mapStripeError(err)
}

func (g *StripeGateway) DetachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	detach := &stripe.PaymentMethodDetachParams{}
	detach.Context = ctx
	if _, err := g.api.PaymentMethods.Detach(paymentMethodID, detach); err != nil {
		return mapStripeError(err)
	}
	update := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{DefaultPaymentMethod: stripe.String("")},
	}
	update.Context = ctx
	_, err := g.api.Customers.Update(customerID, update)
	return mapStripeError(err)
}

func convertSubscription(s *stripe.Subscription) *Subscription {
	out := &Subscription{ID: s.ID, Status: string(s.Status)}
	if s.Items != nil && len(s.Items.Data) > 0 {
		out.ItemID = s.Items.Data[0].ID
	}
	if s.LatestInvoice != nil && s.LatestInvoice.PaymentIntent != nil {
		pi := s.LatestInvoice.PaymentIntent
		out.PaymentStatus = string(pi.Status)
		out.ClientSecret = pi.ClientSecret
		if pi.LastPaymentError != nil {
			out.PaymentError = pi.LastPaymentError.Msg
		}
	}
	return out
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID, priceID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items:    []*stripe.SubscriptionItemsParams{{Price: stripe.String(priceID)}},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	s, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return convertSubscription(s), nil
}

func (g *StripeGateway) UpdateSubscription(ctx context.Context, subscriptionID, priceID string) (*Subscription, error) {
	get := &stripe.SubscriptionParams{}
	get.Context = ctx
	cur, err := g.api.Subscriptions.Get(subscriptionID, get)
	if err != nil {
		return nil, mapStripeError(err)
	}
	current := convertSubscription(cur)
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
		Items: []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(current.ItemID),
			Price: stripe.String(priceID),
		}},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	s, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return convertSubscription(s), nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := g.api.Subscriptions.Cancel(subscriptionID, params)
	return mapStripeError(err)
}
