package billing

import (
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
)

// Invoice is the subset of an invoice event the service acts on.
type Invoice struct {
	CustomerID       string
	SubscriptionID   string
	SubscriptionType string
}

// ParseEvent decodes a webhook payload. With a non-empty secret the signature
// header is verified first. Non-invoice events return a nil invoice.
func ParseEvent(payload []byte, signature, secret string) (string, *Invoice, error) {
	var event stripe.Event
	if secret != "" {
		var err error
		event, err = webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
			Tolerance:                webhook.DefaultTolerance,
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return "", nil, apierr.Wrap(apierr.KindValidation, "Webhook Error: "+err.Error(), err)
		}
	} else if err := json.Unmarshal(payload, &event); err != nil {
		return "", nil, apierr.Wrap(apierr.KindValidation, "Webhook Error: invalid payload", err)
	}

	eventType := string(event.Type)
	if !strings.HasPrefix(eventType, "invoice.") || event.Data == nil {
		return eventType, nil, nil
	}
	var raw stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &raw); err != nil {
		return "", nil, apierr.Wrap(apierr.KindValidation, "Webhook Error: invalid invoice", err)
	}
	inv := &Invoice{}
	if raw.Customer != nil {
		inv.CustomerID = raw.Customer.ID
	}
	if raw.Subscription != nil {
		inv.SubscriptionID = raw.Subscription.ID
	}
	if raw.Lines != nil {
		for _, line := range raw.Lines.Data {
			if line.Price != nil && line.Price.Metadata["type"] != "" {
				inv.SubscriptionType = line.Price.Metadata["type"]
				break
			}
		}
	}
	return eventType, inv, nil
}
