package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atpstore/storefront-gateway/internal/domain"
	"github.com/atpstore/storefront-gateway/internal/membership"
)

func newMembershipTestRig(svc *fakeMembershipService) *gin.Engine {
	h := NewMembershipHandler(svc, zap.NewNop())
	router := gin.New()
	router.GET("/api/membership/status", h.Status)
	return router
}

func getMembershipStatus(router *gin.Engine, query string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/membership/status"+query, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestMembershipStatusRequiresCustomerID(t *testing.T) {
	router := newMembershipTestRig(&fakeMembershipService{})

	for _, query := range []string{"", "?customerId=", "?customerId=abc", "?customerId=-1"} {
		w := getMembershipStatus(router, query)
		require.Equal(t, http.StatusBadRequest, w.Code, "query %q", query)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, "customerId is required", body["message"])
	}
}

func TestMembershipStatusNonMember(t *testing.T) {
	router := newMembershipTestRig(&fakeMembershipService{})

	w := getMembershipStatus(router, "?customerId=456")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		IsMember     bool               `json:"isMember"`
		Tier         *string            `json:"tier"`
		DiscountRate float64            `json:"discountRate"`
		Membership   *domain.Membership `json:"membership"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.False(t, body.IsMember)
	require.Nil(t, body.Tier)
	require.Zero(t, body.DiscountRate)
	require.Nil(t, body.Membership)
}

func TestMembershipStatusActiveMember(t *testing.T) {
	expires := time.Now().Add(200 * 24 * time.Hour).UTC().Truncate(time.Second)
	svc := &fakeMembershipService{status: &membership.Status{
		IsMember:     true,
		Tier:         membership.TierATP,
		DiscountRate: 0.10,
		Membership: &domain.Membership{
			CustomerID:     123,
			Status:         domain.MembershipActive,
			ExpirationDate: expires,
		},
	}}
	router := newMembershipTestRig(svc)

	w := getMembershipStatus(router, "?customerId=123")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		IsMember     bool               `json:"isMember"`
		Tier         *string            `json:"tier"`
		DiscountRate float64            `json:"discountRate"`
		Membership   *domain.Membership `json:"membership"`
		ExpiresAt    *time.Time         `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.IsMember)
	require.NotNil(t, body.Tier)
	require.Equal(t, membership.TierATP, *body.Tier)
	require.Equal(t, 0.10, body.DiscountRate)
	require.NotNil(t, body.Membership)
	require.Equal(t, int64(123), body.Membership.CustomerID)
	require.NotNil(t, body.ExpiresAt)
	require.True(t, body.ExpiresAt.Equal(expires))
}

func TestMembershipStatusLookupFailure(t *testing.T) {
	svc := &fakeMembershipService{statusErr: context.DeadlineExceeded}
	router := newMembershipTestRig(svc)

	w := getMembershipStatus(router, "?customerId=123")
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
