package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainoauth "github.com/atpstore/storefront-gateway/internal/domain/oauth"
)

func newTestStore() *CookieStore {
	return NewCookieStore("test-signing-secret", 10*time.Minute, false)
}

// requestWithCookies carries the Set-Cookie headers from a recorder into a
// fresh request, simulating the browser's next call.
func requestWithCookies(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge >= 0 {
			req.AddCookie(cookie)
		}
	}
	return req
}

func TestFlowRoundTrip(t *testing.T) {
	store := newTestStore()
	rec := httptest.NewRecorder()
	flow := domainoauth.FlowState{
		State:        "state-1",
		CodeVerifier: "verifier-1",
		Nonce:        "nonce-1",
		ReturnTo:     "/account",
		CreatedAt:    time.Now().UTC(),
	}

	store.WriteFlow(rec, flow)
	got := store.ReadFlow(requestWithCookies(t, rec))
	require.NotNil(t, got)
	require.Equal(t, flow.State, got.State)
	require.Equal(t, flow.CodeVerifier, got.CodeVerifier)
	require.Equal(t, flow.Nonce, got.Nonce)
	require.Equal(t, flow.ReturnTo, got.ReturnTo)
}

func TestFlowExpired(t *testing.T) {
	store := newTestStore()
	rec := httptest.NewRecorder()
	store.WriteFlow(rec, domainoauth.FlowState{
		State:        "s",
		CodeVerifier: "v",
		Nonce:        "n",
		CreatedAt:    time.Now().Add(-time.Hour),
	})

	require.Nil(t, store.ReadFlow(requestWithCookies(t, rec)), "flow past TTL reads as absent")
}

func TestTokensRoundTrip(t *testing.T) {
	store := newTestStore()
	rec := httptest.NewRecorder()
	tokens := domainoauth.TokenSet{
		AccessToken:          "access-1",
		AccessTokenExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		RefreshToken:         "refresh-1",
		IDToken:              "id-1",
	}

	store.WriteTokens(rec, tokens)
	got := store.ReadTokens(requestWithCookies(t, rec))
	require.NotNil(t, got)
	require.Equal(t, tokens.AccessToken, got.AccessToken)
	require.Equal(t, tokens.RefreshToken, got.RefreshToken)
	require.Equal(t, tokens.IDToken, got.IDToken)
	require.True(t, tokens.AccessTokenExpiresAt.Equal(got.AccessTokenExpiresAt))
}

func TestTamperedCookieReadsAsAbsent(t *testing.T) {
	store := newTestStore()
	rec := httptest.NewRecorder()
	store.WriteTokens(rec, domainoauth.TokenSet{
		AccessToken:          "access",
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
		RefreshToken:         "refresh",
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rec.Result().Cookies() {
		flipped := []byte(cookie.Value)
		if flipped[0] == 'A' {
			flipped[0] = 'B'
		} else {
			flipped[0] = 'A'
		}
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: string(flipped)})
	}

	require.Nil(t, store.ReadTokens(req))
}

func TestWrongKeyReadsAsAbsent(t *testing.T) {
	writer := NewCookieStore("key-one", 10*time.Minute, false)
	reader := NewCookieStore("key-two", 10*time.Minute, false)
	rec := httptest.NewRecorder()
	writer.WriteTokens(rec, domainoauth.TokenSet{
		AccessToken:          "access",
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
		RefreshToken:         "refresh",
	})

	require.Nil(t, reader.ReadTokens(requestWithCookies(t, rec)))
}

func TestClearTokensExpiresAllCookies(t *testing.T) {
	store := newTestStore()
	rec := httptest.NewRecorder()
	store.ClearTokens(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 3)
	for _, cookie := range cookies {
		require.Negative(t, cookie.MaxAge, "cookie %s must be expired", cookie.Name)
	}
}

func TestReadTokensNoCookies(t *testing.T) {
	store := newTestStore()
	require.Nil(t, store.ReadTokens(httptest.NewRequest(http.MethodGet, "/", nil)))
}
