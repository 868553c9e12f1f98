// Package customer issues authenticated GraphQL requests against the
// commerce backend's Customer Account API.
package customer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atpstore/storefront-gateway/internal/config"
	"github.com/atpstore/storefront-gateway/internal/domain"
	domainoauth "github.com/atpstore/storefront-gateway/internal/domain/oauth"
)

// Gateway loads customer data on behalf of an authenticated session.
type Gateway interface {
	Profile(ctx context.Context, accessToken string) (*domain.Customer, error)
}

// GraphQLGateway is the default HTTP implementation.
type GraphQLGateway struct {
	httpClient *http.Client
	endpoint   string
	logger     *zap.Logger
}

var _ Gateway = (*GraphQLGateway)(nil)

// NewGraphQLGateway constructs the default Gateway.
func NewGraphQLGateway(client *http.Client, cfg config.Config, logger *zap.Logger) *GraphQLGateway {
	if client == nil {
		timeout := cfg.UpstreamTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &GraphQLGateway{httpClient: client, endpoint: cfg.CustomerAPIURL, logger: logger}
}

const profileQuery = `query StorefrontCustomer {
  customer {
    id
    firstName
    lastName
    emailAddress { emailAddress }
    phoneNumber { phoneNumber }
  }
}`

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Profile loads the authenticated customer's profile. A non-empty errors
// array or a null customer field maps to ErrUpstream so callers clear the
// session instead of surfacing a half-authenticated state.
func (g *GraphQLGateway) Profile(ctx context.Context, accessToken string) (*domain.Customer, error) {
	resp, err := g.query(ctx, accessToken, profileQuery, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		g.log().Warn("customer api returned errors", zap.String("first_error", resp.Errors[0].Message))
		return nil, fmt.Errorf("customer profile: %w", domainoauth.ErrUpstream)
	}

	var payload struct {
		Customer *struct {
			ID           string `json:"id"`
			FirstName    string `json:"firstName"`
			LastName     string `json:"lastName"`
			EmailAddress *struct {
				EmailAddress string `json:"emailAddress"`
			} `json:"emailAddress"`
			PhoneNumber *struct {
				PhoneNumber string `json:"phoneNumber"`
			} `json:"phoneNumber"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode customer profile: %w", err)
	}
	if payload.Customer == nil {
		return nil, fmt.Errorf("customer profile empty: %w", domainoauth.ErrUpstream)
	}

	profile := &domain.Customer{
		ID:        payload.Customer.ID,
		FirstName: payload.Customer.FirstName,
		LastName:  payload.Customer.LastName,
	}
	if payload.Customer.EmailAddress != nil {
		profile.Email = payload.Customer.EmailAddress.EmailAddress
	}
	if payload.Customer.PhoneNumber != nil {
		profile.Phone = payload.Customer.PhoneNumber.PhoneNumber
	}
	return profile, nil
}

func (g *GraphQLGateway) query(ctx context.Context, accessToken, query string, variables map[string]any) (*graphQLResponse, error) {
	if strings.TrimSpace(g.endpoint) == "" {
		return nil, fmt.Errorf("customer api url missing")
	}

	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read graphql response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("customer api status=%d: %w", resp.StatusCode, domainoauth.ErrUpstream)
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	return &parsed, nil
}

func (g *GraphQLGateway) log() *zap.Logger {
	if g != nil && g.logger != nil {
		return g.logger
	}
	return zap.L()
}
