package billing

import (
	"context"

	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
)

// PlanSpec is a plan to make sure exists in the processor's catalog.
type PlanSpec struct {
	Product ProductSpec
	Price   PriceSpec
}

// DefaultPlans are the paid plans offered next to the free tier.
var DefaultPlans = []PlanSpec{
	{
		Product: ProductSpec{Type: "basic", Name: "Basic", Description: "Basic subscription"},
		Price:   PriceSpec{UnitAmount: 1000, Currency: "usd", Interval: "month"},
	},
	{
		Product: ProductSpec{Type: "advanced", Name: "Advanced", Description: "Advanced subscription"},
		Price:   PriceSpec{UnitAmount: 5000, Currency: "usd", Interval: "month"},
	},
}

// Seed creates every plan whose type is not yet present among the products and
// returns the types it created.
func Seed(ctx context.Context, gw Gateway, plans []PlanSpec) ([]string, error) {
	products, err := gw.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(products))
	for _, p := range products {
		existing[p.Metadata["type"]] = true
	}
	var created []string
	for _, plan := range plans {
		if existing[plan.Product.Type] {
			logger.Infof("billing: plan %s already exists", plan.Product.Type)
			continue
		}
		prod, err := gw.CreateProduct(ctx, plan.Product)
		if err != nil {
			return created, err
		}
		if _, err := gw.CreatePrice(ctx, prod.ID, plan.Product.Type, plan.Price); err != nil {
			return created, err
		}
		logger.Infof("billing: created plan %s (%s)", plan.Product.Type, prod.ID)
		created = append(created, plan.Product.Type)
	}
	return created, nil
}
