package main

import (
	"context"
	"time"

	"github.com/teamhub/teamhub/backend/go-services/internal/billing"
	"github.com/teamhub/teamhub/backend/go-services/internal/config"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
)

// billing-setup creates the paid plans that are missing from the processor's catalog.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)
	if cfg.Stripe.SecretKey == "" {
		logger.Fatalf("STRIPE_SECRET_KEY is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created, err := billing.Seed(ctx, billing.NewStripeGateway(cfg.Stripe.SecretKey), billing.DefaultPlans)
	if err != nil {
		logger.Fatalf("seed plans: %v", err)
	}
	if len(created) == 0 {
		logger.Infof("all plans already exist")
		return
	}
	logger.Infof("created plans: %v", created)
}
