package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atpstore/storefront-gateway/internal/membership"
	"github.com/atpstore/storefront-gateway/internal/webhook"
)

// SignatureHeader carries the HMAC-SHA256 digest Shopify computes over
// the raw request body.
const SignatureHeader = "X-Shopify-Hmac-Sha256"

// WebhookHandler receives Shopify webhook deliveries. Verification runs
// against the raw body before any parsing; after verification the
// handler always acknowledges with 200 so Shopify stops redelivering,
// even when the payload cannot be acted on.
type WebhookHandler struct {
	verifier    *webhook.Verifier
	memberships membership.Service
	marker      string
	logger      *zap.Logger
}

// NewWebhookHandler builds the handler with its dependencies. marker is
// the product title/SKU fragment that identifies membership products.
func NewWebhookHandler(verifier *webhook.Verifier, memberships membership.Service, marker string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, memberships: memberships, marker: marker, logger: logger}
}

// OrdersPaid processes orders/paid deliveries and activates memberships
// for orders containing a membership product.
func (h *WebhookHandler) OrdersPaid(c *gin.Context) {
	raw, ok := h.verifiedBody(c)
	if !ok {
		return
	}

	order, err := webhook.ParseOrderPaid(raw)
	if err != nil {
		h.log().Warn("malformed order webhook ignored", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"message": "Ignored malformed payload"})
		return
	}

	item, found := order.MembershipItem(h.marker)
	if !found {
		c.JSON(http.StatusOK, gin.H{"message": "No membership products in order"})
		return
	}

	if order.Customer == nil || order.Customer.ID == 0 {
		h.log().Warn("membership order without customer, flagged for manual review",
			zap.Int64("order_id", order.ID),
			zap.Int64("order_number", order.OrderNumber),
			zap.String("line_item", item.Title))
		c.JSON(http.StatusOK, gin.H{"message": "Order has no customer; logged for manual review"})
		return
	}

	if _, err := h.memberships.ActivateFromOrder(c.Request.Context(), order.Customer.ID, order.ID, ""); err != nil {
		// Acknowledge anyway: redelivery would hit the same failure, and
		// the log line is the recovery path.
		h.log().Error("membership activation failed",
			zap.Int64("order_id", order.ID),
			zap.Int64("customer_id", order.Customer.ID),
			zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"message": "Activation failed; logged for manual review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Membership order processed successfully"})
}

// CustomersUpdate processes customers/update deliveries and syncs
// membership-namespaced metafield changes into the local record.
func (h *WebhookHandler) CustomersUpdate(c *gin.Context) {
	raw, ok := h.verifiedBody(c)
	if !ok {
		return
	}

	update, err := webhook.ParseCustomerUpdate(raw)
	if err != nil {
		h.log().Warn("malformed customer webhook ignored", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"message": "Ignored malformed payload"})
		return
	}

	fields := update.MembershipMetafields()
	if len(fields) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No membership changes"})
		return
	}

	if err := h.memberships.SyncFromShopify(c.Request.Context(), update.ID, fields); err != nil {
		h.log().Error("membership sync failed",
			zap.Int64("customer_id", update.ID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"message": "Sync failed; logged for manual review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer update processed"})
}

// verifiedBody reads the raw body and checks the HMAC signature. A
// missing or wrong signature aborts with 401; verification fails closed
// when the shared secret is absent.
func (h *WebhookHandler) verifiedBody(c *gin.Context) ([]byte, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		h.log().Warn("webhook body read failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return nil, false
	}

	if !h.verifier.Verify(raw, c.GetHeader(SignatureHeader)) {
		h.log().Warn("webhook signature rejected",
			zap.String("topic", c.GetHeader("X-Shopify-Topic")),
			zap.String("client_ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return raw, true
}

func (h *WebhookHandler) log() *zap.Logger {
	if h != nil && h.logger != nil {
		return h.logger
	}
	return zap.L()
}
