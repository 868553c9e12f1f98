package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atpstore/storefront-gateway/internal/config"
	domainoauth "github.com/atpstore/storefront-gateway/internal/domain/oauth"
)

func testConfig() config.Config {
	return config.Config{
		SiteBaseURL:     "https://atpstore.example",
		ClientID:        "shp_client",
		AuthURL:         "https://shopify.com/authentication/1/oauth/authorize",
		TokenURL:        "https://shopify.com/authentication/1/oauth/token",
		LogoutURL:       "https://shopify.com/authentication/1/logout",
		Scopes:          []string{"openid", "email"},
		AccessTokenSkew: 30 * time.Second,
	}
}

func TestBeginLoginNotConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.ClientID = ""
	svc := NewService(&fakeProviderClient{}, cfg, zap.NewNop())

	_, err := svc.BeginLogin(context.Background(), "/account")
	require.ErrorIs(t, err, domainoauth.ErrNotConfigured)
}

func TestBeginLoginAuthorizationURL(t *testing.T) {
	svc := NewService(&fakeProviderClient{}, testConfig(), zap.NewNop())

	out, err := svc.BeginLogin(context.Background(), "/account")
	require.NoError(t, err)

	parsed, err := url.Parse(out.AuthorizationURL)
	require.NoError(t, err)
	q := parsed.Query()
	require.Equal(t, "shp_client", q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "https://atpstore.example/api/auth/callback", q.Get("redirect_uri"))
	require.Equal(t, "openid email", q.Get("scope"))
	require.Equal(t, out.Flow.State, q.Get("state"))
	require.Equal(t, out.Flow.Nonce, q.Get("nonce"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, Challenge(out.Flow.CodeVerifier), q.Get("code_challenge"))

	require.NotContains(t, out.AuthorizationURL, out.Flow.CodeVerifier,
		"raw verifier must never appear in the authorization request")
	require.Equal(t, "/account", out.Flow.ReturnTo)
}

func TestCompleteLogin(t *testing.T) {
	client := &fakeProviderClient{}
	svc := NewService(client, testConfig(), zap.NewNop())
	flow := &domainoauth.FlowState{
		State:        "state-1",
		Nonce:        "nonce-1",
		CodeVerifier: "verifier-1",
	}
	client.exchangeResp = &domainoauth.TokenResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		IDToken:      signIDToken(t, "nonce-1"),
		ExpiresIn:    120,
	}

	tokens, err := svc.CompleteLogin(context.Background(), flow, "code-1", "state-1")
	require.NoError(t, err)
	require.Equal(t, "access", tokens.AccessToken)
	require.Equal(t, "refresh", tokens.RefreshToken)
	require.True(t, tokens.AccessTokenExpiresAt.After(time.Now()))
	require.Equal(t, "verifier-1", client.lastVerifier)
}

func TestCompleteLoginStateMismatch(t *testing.T) {
	client := &fakeProviderClient{}
	svc := NewService(client, testConfig(), zap.NewNop())
	flow := &domainoauth.FlowState{State: "expected", Nonce: "n", CodeVerifier: "v"}

	_, err := svc.CompleteLogin(context.Background(), flow, "code", "tampered")
	require.ErrorIs(t, err, domainoauth.ErrStateMismatch)
	require.Zero(t, client.exchangeCalls, "exchange must not run on a state mismatch")
}

func TestCompleteLoginNonceMismatch(t *testing.T) {
	client := &fakeProviderClient{}
	svc := NewService(client, testConfig(), zap.NewNop())
	flow := &domainoauth.FlowState{State: "s", Nonce: "expected-nonce", CodeVerifier: "v"}
	client.exchangeResp = &domainoauth.TokenResponse{
		AccessToken: "access",
		IDToken:     signIDToken(t, "other-nonce"),
	}

	_, err := svc.CompleteLogin(context.Background(), flow, "code", "s")
	require.ErrorIs(t, err, domainoauth.ErrStateMismatch)
}

func TestCompleteLoginMissingIDToken(t *testing.T) {
	client := &fakeProviderClient{}
	svc := NewService(client, testConfig(), zap.NewNop())
	flow := &domainoauth.FlowState{State: "s", Nonce: "n", CodeVerifier: "v"}
	client.exchangeResp = &domainoauth.TokenResponse{AccessToken: "access"}

	_, err := svc.CompleteLogin(context.Background(), flow, "code", "s")
	require.ErrorIs(t, err, domainoauth.ErrStateMismatch)
}

func TestValidAccessTokenLoggedOut(t *testing.T) {
	client := &fakeProviderClient{}
	svc := NewService(client, testConfig(), zap.NewNop())

	token, refreshed, err := svc.ValidAccessToken(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, token)
	require.Nil(t, refreshed)
	require.Zero(t, client.refreshCalls)
}

func TestValidAccessTokenFreshTokenSkipsRefresh(t *testing.T) {
	client := &fakeProviderClient{}
	svc := NewService(client, testConfig(), zap.NewNop())
	tokens := &domainoauth.TokenSet{
		AccessToken:          "fresh",
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
		RefreshToken:         "refresh",
	}

	for i := 0; i < 2; i++ {
		token, refreshed, err := svc.ValidAccessToken(context.Background(), tokens)
		require.NoError(t, err)
		require.Equal(t, "fresh", token)
		require.Nil(t, refreshed)
	}
	require.Zero(t, client.refreshCalls, "no refresh before expiry")
}

func TestValidAccessTokenRefreshesExpired(t *testing.T) {
	client := &fakeProviderClient{
		refreshResp: &domainoauth.TokenResponse{AccessToken: "minted", ExpiresIn: 3600},
	}
	svc := NewService(client, testConfig(), zap.NewNop())
	tokens := &domainoauth.TokenSet{
		AccessToken:          "stale",
		AccessTokenExpiresAt: time.Now().Add(-time.Minute),
		RefreshToken:         "refresh-1",
		IDToken:              "id-1",
	}

	token, refreshed, err := svc.ValidAccessToken(context.Background(), tokens)
	require.NoError(t, err)
	require.Equal(t, "minted", token)
	require.NotNil(t, refreshed)
	require.Equal(t, 1, client.refreshCalls)
	require.Equal(t, "refresh-1", refreshed.RefreshToken, "omitted refresh token carries over")
	require.Equal(t, "id-1", refreshed.IDToken, "omitted id token carries over")

	// A second call against the refreshed set reuses the minted token.
	token, again, err := svc.ValidAccessToken(context.Background(), refreshed)
	require.NoError(t, err)
	require.Equal(t, "minted", token)
	require.Nil(t, again)
	require.Equal(t, 1, client.refreshCalls, "refresh-then-use must not refresh twice")
}

func TestValidAccessTokenRefreshFailure(t *testing.T) {
	client := &fakeProviderClient{refreshErr: fmt.Errorf("invalid_grant")}
	svc := NewService(client, testConfig(), zap.NewNop())
	tokens := &domainoauth.TokenSet{
		AccessToken:          "stale",
		AccessTokenExpiresAt: time.Now().Add(-time.Minute),
		RefreshToken:         "revoked",
	}

	token, refreshed, err := svc.ValidAccessToken(context.Background(), tokens)
	require.ErrorIs(t, err, domainoauth.ErrRefreshFailed)
	require.Empty(t, token)
	require.Nil(t, refreshed)
}

func TestLogoutURL(t *testing.T) {
	svc := NewService(&fakeProviderClient{}, testConfig(), zap.NewNop())

	out := svc.LogoutURL("id-token", "https://atpstore.example/")
	parsed, err := url.Parse(out)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "https://shopify.com/authentication/1/logout"))
	require.Equal(t, "id-token", parsed.Query().Get("id_token_hint"))
	require.Equal(t, "https://atpstore.example/", parsed.Query().Get("post_logout_redirect_uri"))
}

// ---- Test harness and fakes ----

type fakeProviderClient struct {
	exchangeResp  *domainoauth.TokenResponse
	exchangeErr   error
	exchangeCalls int
	lastVerifier  string

	refreshResp  *domainoauth.TokenResponse
	refreshErr   error
	refreshCalls int
}

func (f *fakeProviderClient) Exchange(_ context.Context, code, codeVerifier string) (*domainoauth.TokenResponse, error) {
	f.exchangeCalls++
	f.lastVerifier = codeVerifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if f.exchangeResp == nil {
		return nil, fmt.Errorf("exchange not configured")
	}
	return f.exchangeResp, nil
}

func (f *fakeProviderClient) Refresh(context.Context, string) (*domainoauth.TokenResponse, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.refreshResp == nil {
		return nil, fmt.Errorf("refresh not configured")
	}
	return f.refreshResp, nil
}

func signIDToken(t *testing.T, nonce string) string {
	t.Helper()
	key := []byte("0123456789abcdef0123456789abcdef")
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: key},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)

	claims := struct {
		Subject string `json:"sub"`
		Nonce   string `json:"nonce"`
	}{Subject: "customer-1", Nonce: nonce}

	raw, err := gojwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(t, err)
	return raw
}
