package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atpstore/storefront-gateway/internal/customer"
	domainoauth "github.com/atpstore/storefront-gateway/internal/domain/oauth"
	"github.com/atpstore/storefront-gateway/internal/oauth"
	"github.com/atpstore/storefront-gateway/internal/session"
)

const loginFailedRedirect = "/account/login?error=login_failed"

// AuthHandler exposes the customer authentication endpoints backed by the
// PKCE flow and the signed-cookie session store.
type AuthHandler struct {
	oauth     oauth.Service
	sessions  session.Store
	customers customer.Gateway
	logger    *zap.Logger
}

// NewAuthHandler builds the handler with its dependencies.
func NewAuthHandler(oauthSvc oauth.Service, sessions session.Store, customers customer.Gateway, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{oauth: oauthSvc, sessions: sessions, customers: customers, logger: logger}
}

// Login starts the authorization-code flow and redirects the browser to
// the identity provider.
func (h *AuthHandler) Login(c *gin.Context) {
	returnTo := sanitizeReturnTo(c.Query("returnTo"))

	redirect, err := h.oauth.BeginLogin(c.Request.Context(), returnTo)
	if err != nil {
		if errors.Is(err, domainoauth.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "OAuth not configured",
				"message": "Customer login is not configured for this store",
			})
			return
		}
		h.log().Error("begin login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Unable to start login",
		})
		return
	}

	// The flow cookie must be set before the redirect so the callback can
	// validate state and finish the exchange.
	h.sessions.WriteFlow(c.Writer, redirect.Flow)
	c.Redirect(http.StatusFound, redirect.AuthorizationURL)
}

// Callback finishes the flow: it validates state, exchanges the code and
// replaces the session token set. Any failure sends the browser back to
// the login page rather than rendering an error body.
func (h *AuthHandler) Callback(c *gin.Context) {
	flow := h.sessions.ReadFlow(c.Request)
	// One-shot: the flow state never survives past its first callback.
	h.sessions.ClearFlow(c.Writer)

	tokens, err := h.oauth.CompleteLogin(c.Request.Context(), flow, c.Query("code"), c.Query("state"))
	if err != nil {
		h.log().Warn("login callback rejected", zap.Error(err))
		c.Redirect(http.StatusFound, loginFailedRedirect)
		return
	}

	h.sessions.WriteTokens(c.Writer, *tokens)

	target := "/account"
	if flow != nil && flow.ReturnTo != "" {
		target = sanitizeReturnTo(flow.ReturnTo)
	}
	c.Redirect(http.StatusFound, target)
}

// Logout clears the session and forwards the browser to the identity
// provider's logout endpoint so the upstream session ends too.
func (h *AuthHandler) Logout(c *gin.Context) {
	var idToken string
	if tokens := h.sessions.ReadTokens(c.Request); tokens != nil {
		idToken = tokens.IDToken
	}
	h.sessions.ClearTokens(c.Writer)

	returnTo := sanitizeReturnTo(c.Query("returnTo"))
	target := returnTo
	if idToken != "" {
		// Only a session with an ID token has an upstream session worth
		// ending at the provider.
		target = h.oauth.LogoutURL(idToken, returnTo)
	}
	if target == "" {
		target = "/"
	}
	c.Redirect(http.StatusFound, target)
}

// Status reports the session state, refreshing the access token
// transparently when needed. An expired or broken session degrades to the
// logged-out shape, never to an error response.
func (h *AuthHandler) Status(c *gin.Context) {
	tokens := h.sessions.ReadTokens(c.Request)
	if tokens == nil {
		h.loggedOut(c)
		return
	}

	accessToken, refreshed, err := h.oauth.ValidAccessToken(c.Request.Context(), tokens)
	if err != nil {
		h.log().Info("session ended", zap.Error(err))
		h.sessions.ClearTokens(c.Writer)
		h.loggedOut(c)
		return
	}
	if accessToken == "" {
		h.loggedOut(c)
		return
	}
	if refreshed != nil {
		h.sessions.WriteTokens(c.Writer, *refreshed)
	}

	profile, err := h.customers.Profile(c.Request.Context(), accessToken)
	if err != nil {
		if errors.Is(err, domainoauth.ErrUpstream) {
			h.log().Warn("customer profile rejected, clearing session", zap.Error(err))
			h.sessions.ClearTokens(c.Writer)
			h.loggedOut(c)
			return
		}
		h.log().Error("customer profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Unable to load customer profile",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"isLoggedIn": true,
		"customer":   profile,
	})
}

// LegacyGone answers the retired password-based endpoints.
func (h *AuthHandler) LegacyGone(c *gin.Context) {
	c.JSON(http.StatusGone, gin.H{
		"error":   "Gone",
		"message": "Password login has been replaced by Shopify customer accounts. Use /api/auth/login.",
	})
}

func (h *AuthHandler) loggedOut(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"isLoggedIn": false,
		"customer":   nil,
	})
}

func (h *AuthHandler) log() *zap.Logger {
	if h != nil && h.logger != nil {
		return h.logger
	}
	return zap.L()
}

// sanitizeReturnTo restricts post-login redirects to same-site relative
// paths. Anything else, including protocol-relative URLs, falls back to
// the storefront root.
func sanitizeReturnTo(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	if strings.ContainsAny(raw, "\\\r\n") {
		return "/"
	}
	return raw
}
