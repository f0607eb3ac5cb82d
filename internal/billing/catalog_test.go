package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
)

func TestCatalogPlansSortedWithSymbol(t *testing.T) {
	c := NewCatalog(newFakeGateway(), time.Hour)
	plans, err := c.Plans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "basic", plans[0].Product.Metadata["type"])
	assert.Equal(t, int64(1000), plans[0].Price.UnitAmount)
	assert.Equal(t, "$", plans[0].Price.CurrencySymbol)
	assert.Equal(t, "month", plans[1].Price.Recurring.Interval)
	assert.True(t, c.Ready())
}

func TestCatalogSkipsInactiveProducts(t *testing.T) {
	gw := newFakeGateway()
	gw.products[0].Active = false
	plans, err := NewCatalog(gw, time.Hour).Plans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "prod_basic", plans[0].Product.ID)
}

func TestCatalogServesStaleDataWhenRefreshFails(t *testing.T) {
	gw := newFakeGateway()
	c := NewCatalog(gw, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Refresh(context.Background()))

	gw.listErr = errors.New("processor down")
	now = now.Add(2 * time.Minute)
	price, err := c.PriceFor(context.Background(), "advanced")
	require.NoError(t, err)
	assert.Equal(t, "price_adv", price.ID)
}

func TestCatalogFailsWithoutData(t *testing.T) {
	gw := newFakeGateway()
	gw.listErr = errors.New("processor down")
	c := NewCatalog(gw, time.Minute)
	_, err := c.Plans(context.Background())
	require.Error(t, err)
	assert.False(t, c.Ready())
}

func TestCatalogReloadsAfterTTL(t *testing.T) {
	gw := newFakeGateway()
	c := NewCatalog(gw, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	_, err := c.Plans(context.Background())
	require.NoError(t, err)

	gw.prices = append(gw.prices, Price{ID: "price_pro", ProductID: "prod_pro", Metadata: map[string]string{"type": "pro"}})
	_, err = c.PriceFor(context.Background(), "pro")
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))

	now = now.Add(2 * time.Minute)
	price, err := c.PriceFor(context.Background(), "pro")
	require.NoError(t, err)
	assert.Equal(t, "price_pro", price.ID)
}

func TestUnknownSubscriptionType(t *testing.T) {
	_, err := NewCatalog(newFakeGateway(), time.Hour).PriceFor(context.Background(), "gold")
	require.Error(t, err)
	assert.Equal(t, "Subscription type not found", apierr.Message(err))
}

func TestCurrencySymbolFallsBackToCode(t *testing.T) {
	assert.Equal(t, "€", CurrencySymbol("EUR"))
	assert.Equal(t, "SEK", CurrencySymbol("sek"))
}
