package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atpstore/storefront-gateway/internal/domain"
	"github.com/atpstore/storefront-gateway/internal/membership"
)

// MembershipHandler serves the storefront's membership status endpoint.
type MembershipHandler struct {
	memberships membership.Service
	logger      *zap.Logger
}

// NewMembershipHandler builds the handler with its dependencies.
func NewMembershipHandler(memberships membership.Service, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{memberships: memberships, logger: logger}
}

type membershipStatusResponse struct {
	IsMember     bool               `json:"isMember"`
	Tier         *string            `json:"tier"`
	DiscountRate float64            `json:"discountRate"`
	Membership   *domain.Membership `json:"membership"`
	ExpiresAt    *time.Time         `json:"expiresAt,omitempty"`
}

// Status resolves a customer's membership entitlement. Non-membership is
// a normal 200 response.
func (h *MembershipHandler) Status(c *gin.Context) {
	rawID := c.Query("customerId")
	customerID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || customerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "customerId is required",
		})
		return
	}

	status, err := h.memberships.StatusForCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.log().Error("membership status lookup failed",
			zap.Int64("customer_id", customerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Unable to load membership status",
		})
		return
	}

	resp := membershipStatusResponse{
		IsMember:     status.IsMember,
		DiscountRate: status.DiscountRate,
		Membership:   status.Membership,
	}
	if status.IsMember {
		tier := status.Tier
		resp.Tier = &tier
		if status.Membership != nil {
			expires := status.Membership.ExpirationDate
			resp.ExpiresAt = &expires
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MembershipHandler) log() *zap.Logger {
	if h != nil && h.logger != nil {
		return h.logger
	}
	return zap.L()
}
