package billing

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
)

// CatalogSource is the part of Gateway the catalog reads from.
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListPrices(ctx context.Context) ([]Price, error)
}

var currencySymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
	"inr": "₹",
	"cad": "CA$",
	"aud": "A$",
	"chf": "CHF",
}

// CurrencySymbol returns the display symbol of an ISO currency code, or the
// upper-cased code when none is known.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToLower(code)]; ok {
		return s
	}
	return strings.ToUpper(code)
}

type PlanProduct struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Active      bool              `json:"active"`
	Metadata    map[string]string `json:"metadata"`
}

type PlanRecurring struct {
	Interval string `json:"interval"`
}

type PlanPrice struct {
	ID             string            `json:"id"`
	UnitAmount     int64             `json:"unit_amount"`
	Currency       string            `json:"currency"`
	CurrencySymbol string            `json:"currency_symbol"`
	Recurring      PlanRecurring     `json:"recurring"`
	Metadata       map[string]string `json:"metadata"`
}

// Plan is a product joined with its price, as listed to clients.
type Plan struct {
	Product PlanProduct `json:"product"`
	Price   PlanPrice   `json:"price"`
}

// Catalog caches the processor's products and prices. Data older than the TTL
// is reloaded on the next read; when reloading fails the previous data is served.
type Catalog struct {
	src CatalogSource
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	products []Product
	prices   []Price
	loadedAt time.Time
}

func NewCatalog(src CatalogSource, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Catalog{src: src, ttl: ttl, now: time.Now}
}

// Refresh reloads products and prices.
func (c *Catalog) Refresh(ctx context.Context) error {
	products, err := c.src.ListProducts(ctx)
	if err != nil {
		return err
	}
	prices, err := c.src.ListPrices(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.products = products
	c.prices = prices
	c.loadedAt = c.now()
	c.mu.Unlock()
	logger.Infof("billing: catalog loaded with %d products and %d prices", len(products), len(prices))
	return nil
}

// Ready reports whether the catalog has been loaded at least once.
func (c *Catalog) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.loadedAt.IsZero()
}

func (c *Catalog) snapshot(ctx context.Context) ([]Product, []Price, error) {
	c.mu.RLock()
	loadedAt := c.loadedAt
	c.mu.RUnlock()

	if loadedAt.IsZero() || c.now().Sub(loadedAt) > c.ttl {
		if err := c.Refresh(ctx); err != nil {
			if loadedAt.IsZero() {
				return nil, nil, err
			}
			logger.Warnf("billing: catalog refresh failed, serving data from %s: %v", loadedAt.Format(time.RFC3339), err)
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.products, c.prices, nil
}

// Plans joins every active product with its price, cheapest first.
func (c *Catalog) Plans(ctx context.Context) ([]Plan, error) {
	products, prices, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[string]Price, len(prices))
	for _, p := range prices {
		if _, ok := byProduct[p.ProductID]; !ok {
			byProduct[p.ProductID] = p
		}
	}
	plans := make([]Plan, 0, len(products))
	for _, prod := range products {
		if !prod.Active {
			continue
		}
		price, ok := byProduct[prod.ID]
		if !ok {
			continue
		}
		plans = append(plans, Plan{
			Product: PlanProduct{
				ID:          prod.ID,
				Name:        prod.Name,
				Description: prod.Description,
				Active:      prod.Active,
				Metadata:    prod.Metadata,
			},
			Price: PlanPrice{
				ID:             price.ID,
				UnitAmount:     price.UnitAmount,
				Currency:       price.Currency,
				CurrencySymbol: CurrencySymbol(price.Currency),
				Recurring:      PlanRecurring{Interval: price.Interval},
				Metadata:       price.Metadata,
			},
		})
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Price.UnitAmount < plans[j].Price.UnitAmount
	})
	return plans, nil
}

// PriceFor returns the price whose metadata type is typ.
func (c *Catalog) PriceFor(ctx context.Context, typ string) (*Price, error) {
	_, prices, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range prices {
		if p.Type() == typ {
			p := p
			return &p, nil
		}
	}
	return nil, apierr.NotFound("Subscription type not found")
}

// ProductByID returns a cached product.
func (c *Catalog) ProductByID(ctx context.Context, id string) (*Product, error) {
	products, _, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, apierr.NotFound("Product not found")
}
