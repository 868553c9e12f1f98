package oauth

import "errors"

var (
	// ErrNotConfigured signals a missing client id; login cannot start.
	ErrNotConfigured = errors.New("oauth: client not configured")
	// ErrInvalidRequest indicates caller input validation errors.
	ErrInvalidRequest = errors.New("oauth: invalid request")
	// ErrStateMismatch indicates the callback state or ID-token nonce does
	// not match the values stored at flow initiation. Treated as a
	// potential CSRF/replay attempt; no session is established.
	ErrStateMismatch = errors.New("oauth: state mismatch")
	// ErrRefreshFailed indicates the refresh token was rejected; the whole
	// token set must be cleared, never left partially valid.
	ErrRefreshFailed = errors.New("oauth: token refresh failed")
	// ErrUpstream indicates the customer API returned errors or empty data
	// for a field that must be present. Callers clear the session rather
	// than surface a half-authenticated state.
	ErrUpstream = errors.New("oauth: upstream api error")
)
