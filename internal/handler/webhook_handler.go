package handler

import (
	"net/http"

	"github.com/belmonthotel/service-reservation/internal/application"
	"github.com/belmonthotel/service-reservation/internal/events"
	"github.com/belmonthotel/service-reservation/internal/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives invoice callbacks from the payment provider over
// HTTP. It feeds the same idempotent reconciler as the Kafka consumer, so a
// callback delivered on both paths settles once.
type WebhookHandler struct {
	paymentSvc *application.PaymentService
	logger     *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(paymentSvc *application.PaymentService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{paymentSvc: paymentSvc, logger: logger}
}

// RegisterRoutes registers the webhook endpoint. The provider authenticates
// with its own callback mechanism, not a guest JWT.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/payment", h.HandlePaymentCallback)
}

type paymentCallback struct {
	Event         string `json:"event" binding:"required"`
	InvoiceID     string `json:"invoice_id" binding:"required"`
	FailureReason string `json:"failure_reason"`
}

// HandlePaymentCallback handles POST /api/v1/webhooks/payment
func (h *WebhookHandler) HandlePaymentCallback(c *gin.Context) {
	var cb paymentCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	h.logger.Info("payment webhook received",
		zap.String("event", cb.Event),
		zap.String("invoice_id", cb.InvoiceID),
	)

	ctx := c.Request.Context()
	var err error
	switch cb.Event {
	case events.EventInvoicePaid:
		err = h.paymentSvc.HandleInvoicePaid(ctx, cb.InvoiceID)
	case events.EventInvoiceExpired:
		err = h.paymentSvc.HandleInvoiceExpired(ctx, cb.InvoiceID)
	case events.EventInvoiceFailed:
		err = h.paymentSvc.HandleInvoiceFailed(ctx, cb.InvoiceID, cb.FailureReason)
	case events.EventInvoiceVoided:
		err = h.paymentSvc.HandleInvoiceVoided(ctx, cb.InvoiceID)
	default:
		// Unknown events are acknowledged so the provider stops retrying.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
