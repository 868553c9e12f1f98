package oauth

import "time"

// FlowState captures the state/nonce/pkce tuple persisted between the
// authorization redirect and the callback. Only one flow may be pending
// per browser session; writing a new one overwrites the old.
type FlowState struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	Nonce        string    `json:"nonce"`
	ReturnTo     string    `json:"return_to,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TokenSet holds the authenticated session's tokens. The three tokens are
// always replaced together; a partial update is never valid.
type TokenSet struct {
	AccessToken          string    `json:"access_token"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
	RefreshToken         string    `json:"refresh_token"`
	IDToken              string    `json:"id_token"`
}

// Empty reports whether the set holds no session at all.
func (t *TokenSet) Empty() bool {
	return t == nil || (t.AccessToken == "" && t.RefreshToken == "")
}

// AccessTokenValid reports whether the access token may still be used at
// now, refusing tokens within skew of their expiry so that an in-flight
// API call cannot outlive the token.
func (t *TokenSet) AccessTokenValid(now time.Time, skew time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return now.Add(skew).Before(t.AccessTokenExpiresAt)
}

// TokenResponse models the identity provider's token endpoint reply.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}
