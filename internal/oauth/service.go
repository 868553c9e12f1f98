package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atpstore/storefront-gateway/internal/config"
	domainoauth "github.com/atpstore/storefront-gateway/internal/domain/oauth"
)

// Service orchestrates the PKCE authorization-code flow against the
// commerce backend's customer identity provider.
type Service interface {
	BeginLogin(ctx context.Context, returnTo string) (*LoginRedirect, error)
	CompleteLogin(ctx context.Context, flow *domainoauth.FlowState, code, state string) (*domainoauth.TokenSet, error)
	// ValidAccessToken is the single access point for access-token-gated
	// calls. It returns "" with a nil error for the logged-out case, and a
	// replacement token set when a transparent refresh happened; the
	// caller must persist the replacement atomically.
	ValidAccessToken(ctx context.Context, tokens *domainoauth.TokenSet) (string, *domainoauth.TokenSet, error)
	LogoutURL(idToken, returnTo string) string
}

// LoginRedirect carries the authorization URL plus the flow state the
// caller must persist before redirecting.
type LoginRedirect struct {
	AuthorizationURL string
	Flow             domainoauth.FlowState
}

type service struct {
	client ProviderClient
	cfg    config.Config
	logger *zap.Logger
}

// NewService wires the OAuth service implementation.
func NewService(client ProviderClient, cfg config.Config, logger *zap.Logger) Service {
	return &service{client: client, cfg: cfg, logger: logger}
}

func (s *service) BeginLogin(ctx context.Context, returnTo string) (*LoginRedirect, error) {
	if !s.cfg.OAuthConfigured() {
		return nil, domainoauth.ErrNotConfigured
	}

	state, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("generate pkce verifier: %w", err)
	}

	authURL, err := url.Parse(s.cfg.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("parse auth url: %w", err)
	}

	params := authURL.Query()
	params.Set("client_id", s.cfg.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", s.cfg.RedirectURI())
	params.Set("scope", strings.Join(s.cfg.Scopes, " "))
	params.Set("state", state)
	params.Set("nonce", nonce)
	params.Set("code_challenge", Challenge(verifier))
	params.Set("code_challenge_method", "S256")
	authURL.RawQuery = params.Encode()

	return &LoginRedirect{
		AuthorizationURL: authURL.String(),
		Flow: domainoauth.FlowState{
			State:        state,
			CodeVerifier: verifier,
			Nonce:        nonce,
			ReturnTo:     returnTo,
			CreatedAt:    time.Now().UTC(),
		},
	}, nil
}

func (s *service) CompleteLogin(ctx context.Context, flow *domainoauth.FlowState, code, state string) (*domainoauth.TokenSet, error) {
	if flow == nil || strings.TrimSpace(code) == "" || strings.TrimSpace(state) == "" {
		return nil, domainoauth.ErrInvalidRequest
	}
	if subtle.ConstantTimeCompare([]byte(flow.State), []byte(state)) != 1 {
		return nil, domainoauth.ErrStateMismatch
	}

	resp, err := s.client.Exchange(ctx, code, flow.CodeVerifier)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return nil, fmt.Errorf("exchange code: %w", domainoauth.ErrUpstream)
	}

	// The ID token must echo the nonce stored at flow initiation; a
	// missing token or claim is treated the same as a mismatch.
	nonce, err := IDTokenNonce(resp.IDToken)
	if err != nil {
		s.log().Warn("id token rejected", zap.Error(err))
		return nil, domainoauth.ErrStateMismatch
	}
	if subtle.ConstantTimeCompare([]byte(flow.Nonce), []byte(nonce)) != 1 {
		return nil, domainoauth.ErrStateMismatch
	}

	return tokenSetFromResponse(resp, nil), nil
}

func (s *service) ValidAccessToken(ctx context.Context, tokens *domainoauth.TokenSet) (string, *domainoauth.TokenSet, error) {
	if tokens.Empty() {
		return "", nil, nil
	}
	now := time.Now()
	if tokens.AccessTokenValid(now, s.cfg.AccessTokenSkew) {
		return tokens.AccessToken, nil, nil
	}
	if strings.TrimSpace(tokens.RefreshToken) == "" {
		return "", nil, nil
	}

	resp, err := s.client.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		s.log().Warn("token refresh rejected", zap.Error(err))
		return "", nil, domainoauth.ErrRefreshFailed
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return "", nil, domainoauth.ErrRefreshFailed
	}

	refreshed := tokenSetFromResponse(resp, tokens)
	return refreshed.AccessToken, refreshed, nil
}

func (s *service) LogoutURL(idToken, returnTo string) string {
	logoutURL, err := url.Parse(s.cfg.LogoutURL)
	if err != nil || strings.TrimSpace(s.cfg.LogoutURL) == "" {
		return returnTo
	}
	params := logoutURL.Query()
	params.Set("id_token_hint", idToken)
	if returnTo != "" {
		params.Set("post_logout_redirect_uri", returnTo)
	}
	logoutURL.RawQuery = params.Encode()
	return logoutURL.String()
}

func (s *service) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

// tokenSetFromResponse builds the replacement token set. Providers may
// omit the refresh or ID token on refresh grants; the previous values
// carry over so the set is always replaced whole.
func tokenSetFromResponse(resp *domainoauth.TokenResponse, prev *domainoauth.TokenSet) *domainoauth.TokenSet {
	expiresIn := resp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	set := &domainoauth.TokenSet{
		AccessToken:          resp.AccessToken,
		AccessTokenExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
		RefreshToken:         resp.RefreshToken,
		IDToken:              resp.IDToken,
	}
	if prev != nil {
		if set.RefreshToken == "" {
			set.RefreshToken = prev.RefreshToken
		}
		if set.IDToken == "" {
			set.IDToken = prev.IDToken
		}
	}
	return set
}
