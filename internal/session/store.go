// Package session keeps all authenticated-session state in signed,
// http-only cookies so request handlers stay stateless and horizontally
// scalable by construction.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	domainoauth "github.com/atpstore/storefront-gateway/internal/domain/oauth"
)

const (
	flowCookie    = "atp_oauth_flow"
	accessCookie  = "atp_access_token"
	refreshCookie = "atp_refresh_token"
	idCookie      = "atp_id_token"

	refreshTokenLifetime = 30 * 24 * time.Hour
)

// Store persists the pending OAuth flow and the session token set between
// requests. A tampered or malformed value reads as absent, never as an
// error.
type Store interface {
	ReadFlow(r *http.Request) *domainoauth.FlowState
	WriteFlow(w http.ResponseWriter, flow domainoauth.FlowState)
	ClearFlow(w http.ResponseWriter)

	ReadTokens(r *http.Request) *domainoauth.TokenSet
	// WriteTokens replaces the whole token set; the three cookies are
	// always written together so the set is never partially updated.
	WriteTokens(w http.ResponseWriter, tokens domainoauth.TokenSet)
	ClearTokens(w http.ResponseWriter)
}

// CookieStore implements Store with HMAC-SHA256 signed cookies.
type CookieStore struct {
	secret  []byte
	secure  bool
	flowTTL time.Duration
}

var _ Store = (*CookieStore)(nil)

// NewCookieStore constructs a cookie store. secure controls the Secure
// cookie flag and should only be false in local development.
func NewCookieStore(secret string, flowTTL time.Duration, secure bool) *CookieStore {
	if flowTTL <= 0 {
		flowTTL = 10 * time.Minute
	}
	return &CookieStore{secret: []byte(secret), secure: secure, flowTTL: flowTTL}
}

type accessPayload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *CookieStore) ReadFlow(r *http.Request) *domainoauth.FlowState {
	payload, ok := s.openCookie(r, flowCookie)
	if !ok {
		return nil
	}
	var flow domainoauth.FlowState
	if err := json.Unmarshal(payload, &flow); err != nil {
		return nil
	}
	if flow.State == "" || flow.CodeVerifier == "" {
		return nil
	}
	if !flow.CreatedAt.IsZero() && time.Since(flow.CreatedAt) > s.flowTTL {
		return nil
	}
	return &flow
}

func (s *CookieStore) WriteFlow(w http.ResponseWriter, flow domainoauth.FlowState) {
	payload, err := json.Marshal(flow)
	if err != nil {
		return
	}
	s.setCookie(w, flowCookie, s.seal(payload), int(s.flowTTL.Seconds()))
}

func (s *CookieStore) ClearFlow(w http.ResponseWriter) {
	s.expireCookie(w, flowCookie)
}

func (s *CookieStore) ReadTokens(r *http.Request) *domainoauth.TokenSet {
	tokens := &domainoauth.TokenSet{}
	if payload, ok := s.openCookie(r, accessCookie); ok {
		var access accessPayload
		if err := json.Unmarshal(payload, &access); err == nil {
			tokens.AccessToken = access.Token
			tokens.AccessTokenExpiresAt = access.ExpiresAt
		}
	}
	if payload, ok := s.openCookie(r, refreshCookie); ok {
		tokens.RefreshToken = string(payload)
	}
	if payload, ok := s.openCookie(r, idCookie); ok {
		tokens.IDToken = string(payload)
	}
	if tokens.Empty() {
		return nil
	}
	return tokens
}

func (s *CookieStore) WriteTokens(w http.ResponseWriter, tokens domainoauth.TokenSet) {
	access, err := json.Marshal(accessPayload{
		Token:     tokens.AccessToken,
		ExpiresAt: tokens.AccessTokenExpiresAt,
	})
	if err != nil {
		return
	}
	accessTTL := int(time.Until(tokens.AccessTokenExpiresAt).Seconds())
	if accessTTL < 0 {
		accessTTL = 0
	}
	s.setCookie(w, accessCookie, s.seal(access), accessTTL)
	s.setCookie(w, refreshCookie, s.seal([]byte(tokens.RefreshToken)), int(refreshTokenLifetime.Seconds()))
	s.setCookie(w, idCookie, s.seal([]byte(tokens.IDToken)), accessTTL)
}

func (s *CookieStore) ClearTokens(w http.ResponseWriter) {
	s.expireCookie(w, accessCookie)
	s.expireCookie(w, refreshCookie)
	s.expireCookie(w, idCookie)
}

// seal signs the payload: base64url(payload) "." base64url(mac).
func (s *CookieStore) seal(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *CookieStore) open(value string) ([]byte, bool) {
	dot := strings.LastIndexByte(value, '.')
	if dot < 0 {
		return nil, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(value[:dot])
	if err != nil {
		return nil, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(value[dot+1:])
	if err != nil {
		return nil, false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, false
	}
	return payload, true
}

func (s *CookieStore) openCookie(r *http.Request, name string) ([]byte, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return s.open(cookie.Value)
}

func (s *CookieStore) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *CookieStore) expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
