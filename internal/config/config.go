package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string

	// SiteBaseURL is the public origin of the storefront, used to build
	// redirect URIs and to resolve returnTo paths.
	SiteBaseURL string

	ShopID         string
	ClientID       string
	ClientSecret   string
	AuthURL        string
	TokenURL       string
	LogoutURL      string
	CustomerAPIURL string
	Scopes         []string

	// WebhookSecret may be empty; webhook verification then fails closed.
	WebhookSecret string
	CookieSecret  string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StateTTL         time.Duration
	AccessTokenSkew  time.Duration
	UpstreamTimeout  time.Duration
	MembershipMarker string

	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool

	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
//
// The Shopify client id and webhook secret are deliberately not required
// here: the login route reports a configuration error and webhook
// verification fails closed when they are missing, so the rest of the
// storefront keeps serving.
func Load() (Config, error) {
	_ = godotenv.Load()

	siteBaseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("SITE_BASE_URL")), "/")
	if siteBaseURL == "" {
		return Config{}, fmt.Errorf("SITE_BASE_URL is required")
	}
	shopID := strings.TrimSpace(os.Getenv("SHOPIFY_SHOP_ID"))
	if shopID == "" {
		return Config{}, fmt.Errorf("SHOPIFY_SHOP_ID is required")
	}
	cookieSecret := strings.TrimSpace(os.Getenv("COOKIE_SIGNING_SECRET"))
	if cookieSecret == "" {
		return Config{}, fmt.Errorf("COOKIE_SIGNING_SECRET is required")
	}

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "storefront-gateway"),

		SiteBaseURL: siteBaseURL,

		ShopID:         shopID,
		ClientID:       strings.TrimSpace(os.Getenv("SHOPIFY_CUSTOMER_ACCOUNT_CLIENT_ID")),
		ClientSecret:   strings.TrimSpace(os.Getenv("SHOPIFY_CUSTOMER_ACCOUNT_CLIENT_SECRET")),
		AuthURL:        getEnv("SHOPIFY_AUTH_URL", fmt.Sprintf("https://shopify.com/authentication/%s/oauth/authorize", shopID)),
		TokenURL:       getEnv("SHOPIFY_TOKEN_URL", fmt.Sprintf("https://shopify.com/authentication/%s/oauth/token", shopID)),
		LogoutURL:      getEnv("SHOPIFY_LOGOUT_URL", fmt.Sprintf("https://shopify.com/authentication/%s/logout", shopID)),
		CustomerAPIURL: getEnv("SHOPIFY_CUSTOMER_API_URL", fmt.Sprintf("https://shopify.com/%s/account/customer/api/2025-01/graphql", shopID)),
		Scopes:         getList("OAUTH_SCOPES", []string{"openid", "email", "customer-account-api:full"}),

		WebhookSecret: strings.TrimSpace(os.Getenv("SHOPIFY_WEBHOOK_SECRET")),
		CookieSecret:  cookieSecret,

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		StateTTL:         getDuration("OAUTH_STATE_TTL", 10*time.Minute),
		AccessTokenSkew:  getDuration("ACCESS_TOKEN_SKEW", 30*time.Second),
		UpstreamTimeout:  getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		MembershipMarker: getEnv("MEMBERSHIP_PRODUCT_MARKER", "membership"),

		RateLimitRPM:      getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{siteBaseURL}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// RedirectURI returns the OAuth callback URL registered with the identity
// provider.
func (c Config) RedirectURI() string {
	return c.SiteBaseURL + "/api/auth/callback"
}

// OAuthConfigured reports whether customer login can be attempted at all.
func (c Config) OAuthConfigured() bool {
	return c.ClientID != ""
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
