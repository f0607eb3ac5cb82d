package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/billing"
	"github.com/teamhub/teamhub/backend/go-services/pkg/middleware"
)

const maxWebhookPayload = 64 << 10

// BillingHandler serves /stripe: plans, payment method, subscriptions and the webhook.
type BillingHandler struct {
	svc           *billing.Service
	webhookSecret string
}

func NewBillingHandler(svc *billing.Service, webhookSecret string) *BillingHandler {
	return &BillingHandler{svc: svc, webhookSecret: webhookSecret}
}

func (h *BillingHandler) Register(rg *gin.RouterGroup, authenticate gin.HandlerFunc) {
	s := rg.Group("/stripe")
	s.POST("/stripe-webhook", h.Webhook)

	s.Use(authenticate)
	s.POST("/get-products", h.Products)
	s.POST("/updatePaymentMethod", h.UpdatePaymentMethod)
	s.POST("/create-subscription", h.CreateSubscription)
	s.POST("/complete-subscription", h.CompleteSubscription)
	s.POST("/delete-subscription", h.DeleteSubscription)
}

func (h *BillingHandler) Products(c *gin.Context) {
	plans, err := h.svc.Catalog().Plans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": plans})
}

type paymentMethodRequest struct {
	PaymentMethodID string           `json:"paymentMethodId" binding:"required"`
	Address         *billing.Address `json:"address"`
}

func (h *BillingHandler) UpdatePaymentMethod(c *gin.Context) {
	var req paymentMethodRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.UpdatePaymentMethod(c.Request.Context(), middleware.CurrentUser(c), req.PaymentMethodID, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// CreateSubscription answers 204 when the user moved to the free tier, the
// subscription to confirm when one was created, and the updated user on a plan change.
func (h *BillingHandler) CreateSubscription(c *gin.Context) {
	var req struct {
		SubscriptionType string `json:"subscriptionType" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	sub, u, err := h.svc.ChangeSubscription(c.Request.Context(), middleware.CurrentUser(c), req.SubscriptionType)
	if err != nil {
		respondError(c, err)
		return
	}
	if sub == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "user": u})
}

func (h *BillingHandler) CompleteSubscription(c *gin.Context) {
	var req struct {
		SubscriptionID string `json:"subscriptionId" binding:"required"`
		ProductID      string `json:"productId" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.CompleteSubscription(c.Request.Context(), middleware.CurrentUser(c), req.SubscriptionID, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *BillingHandler) DeleteSubscription(c *gin.Context) {
	var req struct {
		SubscriptionID string `json:"subscriptionId" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if _, err := h.svc.CancelSubscription(c.Request.Context(), middleware.CurrentUser(c), req.SubscriptionID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookPayload))
	if err != nil {
		respondError(c, apierr.Validation("Webhook Error: unreadable payload"))
		return
	}
	eventType, inv, err := billing.ParseEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.svc.HandleInvoiceEvent(c.Request.Context(), eventType, inv); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
