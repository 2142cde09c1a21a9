// Package oauth talks to external OAuth2 identity providers: authorization
// redirects, code exchange, token refresh, and profile retrieval.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/BradenHooton/autentica/internal/auth"
	"github.com/BradenHooton/autentica/internal/metrics"
	"github.com/BradenHooton/autentica/internal/models"
)

const (
	DefaultHTTPTimeout = 10 * time.Second
	DefaultStateTTL    = 10 * time.Minute

	maxResponseBytes = 1 << 20
)

// Credentials are the client id and secret registered with a provider
type Credentials struct {
	ClientID     string
	ClientSecret string
}

type Config struct {
	Credentials map[models.Provider]Credentials
	HTTPTimeout time.Duration
	StateSecret []byte
	StateTTL    time.Duration
	// Overrides replaces endpoints of built-in providers
	Overrides map[models.Provider]Provider
}

// AuthRedirect is where to send the user, plus the state to expect back
type AuthRedirect struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// TokenPayload is a provider token response
type TokenPayload struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresIn    json.Number `json:"expires_in,omitempty"`
	TokenType    string      `json:"token_type,omitempty"`
	Scope        string      `json:"scope,omitempty"`
	IDToken      string      `json:"id_token,omitempty"`
}

// ExpiresInSeconds returns expires_in, or 0 when absent or malformed
func (p *TokenPayload) ExpiresInSeconds() int64 {
	n, err := p.ExpiresIn.Int64()
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Client performs OAuth2 flows against configured providers
type Client struct {
	providers   map[models.Provider]Provider
	credentials map[models.Provider]Credentials
	httpClient  *http.Client
	state       *auth.StateManager
	logger      *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}

	providers := DefaultProviders()
	for name, p := range cfg.Overrides {
		providers[name] = p
	}

	creds := make(map[models.Provider]Credentials, len(cfg.Credentials))
	for name, c := range cfg.Credentials {
		if c.ClientID != "" && c.ClientSecret != "" {
			creds[name] = c
		}
	}

	return &Client{
		providers:   providers,
		credentials: creds,
		httpClient:  &http.Client{Timeout: timeout},
		state:       auth.NewStateManager(cfg.StateSecret, ttl),
		logger:      log,
	}
}

// Configured lists providers that have credentials
func (c *Client) Configured() []models.Provider {
	out := make([]models.Provider, 0, len(c.credentials))
	for _, name := range []models.Provider{models.ProviderGoogle, models.ProviderMicrosoft, models.ProviderGitHub, models.ProviderFacebook} {
		if _, ok := c.credentials[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (c *Client) resolve(provider models.Provider) (Provider, Credentials, error) {
	p, ok := c.providers[provider]
	if !ok {
		return Provider{}, Credentials{}, fmt.Errorf("%w: %q", models.ErrUnsupportedProvider, provider)
	}
	creds, ok := c.credentials[provider]
	if !ok {
		return Provider{}, Credentials{}, fmt.Errorf("%w: %s", models.ErrOAuthNotConfigured, provider)
	}
	return p, creds, nil
}

// config builds the oauth2 configuration for one provider. Credentials are
// always sent in the form body.
func (c *Client) config(p Provider, creds Credentials, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthURL,
			TokenURL:  p.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// withHTTPClient makes oauth2 use the client with the configured timeout
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// BuildAuthURL returns the provider authorization URL with a fresh signed state.
// extraScopes are appended to the provider defaults.
func (c *Client) BuildAuthURL(provider models.Provider, redirectURI string, extraScopes ...string) (*AuthRedirect, error) {
	p, creds, err := c.resolve(provider)
	if err != nil {
		return nil, err
	}

	state, err := c.state.Issue(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to issue state: %w", err)
	}

	// scope is set by hand since Facebook separates scopes with commas
	scopes := append(append([]string{}, p.DefaultScopes...), extraScopes...)
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("scope", strings.Join(scopes, p.ScopeSeparator))}
	if provider == models.ProviderGoogle {
		opts = append(opts, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	}

	authURL := c.config(p, creds, redirectURI).AuthCodeURL(state, opts...)
	return &AuthRedirect{URL: authURL, State: state}, nil
}

// VerifyState checks a callback state against the provider it was issued for
func (c *Client) VerifyState(state string, provider models.Provider) error {
	return c.state.Validate(state, provider)
}

// ExchangeCode trades an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, provider models.Provider, code, redirectURI string) (*TokenPayload, error) {
	p, creds, err := c.resolve(provider)
	if err != nil {
		return nil, err
	}

	token, err := c.config(p, creds, redirectURI).Exchange(c.withHTTPClient(ctx), code)
	metrics.OAuthRequestsTotal.WithLabelValues(string(provider), "exchange", metrics.Result(err == nil)).Inc()
	if err != nil {
		c.logger.WarnContext(ctx, "oauth code exchange failed",
			slog.String("provider", string(provider)),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrOAuthRequestFailed, err)
	}
	return payloadFromToken(token), nil
}

// RefreshToken obtains a new access token using a refresh token. When the
// provider does not rotate it, the old refresh token is returned.
func (c *Client) RefreshToken(ctx context.Context, provider models.Provider, refreshToken string) (*TokenPayload, error) {
	p, creds, err := c.resolve(provider)
	if err != nil {
		return nil, err
	}

	source := c.config(p, creds, "").TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	metrics.OAuthRequestsTotal.WithLabelValues(string(provider), "refresh", metrics.Result(err == nil)).Inc()
	if err != nil {
		c.logger.WarnContext(ctx, "oauth token refresh failed",
			slog.String("provider", string(provider)),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrOAuthRequestFailed, err)
	}
	return payloadFromToken(token), nil
}

// FetchUserInfo retrieves and normalizes the provider profile for an access token
func (c *Client) FetchUserInfo(ctx context.Context, provider models.Provider, accessToken string) (*Profile, error) {
	p, _, err := c.resolve(provider)
	if err != nil {
		return nil, err
	}

	profile, err := c.fetchProfile(ctx, provider, p.UserInfoURL, accessToken)
	metrics.OAuthRequestsTotal.WithLabelValues(string(provider), "userinfo", metrics.Result(err == nil)).Inc()
	if err != nil {
		c.logger.WarnContext(ctx, "oauth userinfo failed",
			slog.String("provider", string(provider)),
			slog.Any("error", err))
		return nil, err
	}
	return profile, nil
}

func payloadFromToken(token *oauth2.Token) *TokenPayload {
	payload := &TokenPayload{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		secs := int64(time.Until(token.Expiry).Round(time.Second) / time.Second)
		if secs > 0 {
			payload.ExpiresIn = json.Number(strconv.FormatInt(secs, 10))
		}
	}
	if scope, ok := token.Extra("scope").(string); ok {
		payload.Scope = scope
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		payload.IDToken = idToken
	}
	return payload
}

func (c *Client) fetchProfile(ctx context.Context, provider models.Provider, userInfoURL, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: malformed userinfo response: %v", models.ErrOAuthRequestFailed, err)
	}

	profile := normalizeProfile(provider, raw)
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: userinfo response has no user id", models.ErrOAuthRequestFailed)
	}
	return profile, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrOAuthRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", models.ErrOAuthRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", models.ErrOAuthRequestFailed, resp.StatusCode)
	}
	return body, nil
}
