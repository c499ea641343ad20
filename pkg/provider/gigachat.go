package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	defaultBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
	defaultModel    = "GigaChat"
	defaultTimeout  = 30 * time.Second
)

// authKeyRe matches the client id / client secret halves of a GigaChat
// authorization key.
var authKeyRe = regexp.MustCompile(`^[a-z0-9]{8}(-[a-z0-9]{4}){3}-[a-z0-9]{8}`)

// IsAuthKey reports whether s looks like a GigaChat authorization key:
// base64 of "client_id:client_secret" with UUID-shaped halves.
func IsAuthKey(s string) bool {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	id, secret, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}
	return authKeyRe.MatchString(id) && authKeyRe.MatchString(secret)
}

// GigaChatConfig configures the GigaChat REST client.
type GigaChatConfig struct {
	// AuthKey is the long-lived credential: base64 of client_id:client_secret.
	AuthKey string
	// Scope is the API scope identifier, e.g. "GIGACHAT_API_PERS".
	Scope string
	// Model defaults to "GigaChat".
	Model string
	// OAuthURL and BaseURL override the production endpoints.
	OAuthURL string
	BaseURL  string
	// Timeout bounds every request; on timeout the call fails with a
	// ProviderError.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification. The
	// production endpoints are signed by the Russian Trusted Root CA, which
	// is absent from most cert stores.
	InsecureSkipVerify bool
}

// GigaChatClient talks to the GigaChat REST API. It implements ChatClient.
type GigaChatClient struct {
	cfg        GigaChatConfig
	httpClient *http.Client
	tokens     *TokenStore
}

// NewGigaChatClient validates the credential shape and builds the client.
func NewGigaChatClient(cfg GigaChatConfig) (*GigaChatClient, error) {
	if !IsAuthKey(cfg.AuthKey) {
		return nil, &AuthError{Message: "provided authorization key is not valid"}
	}
	if cfg.Scope == "" {
		cfg.Scope = "GIGACHAT_API_PERS"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = defaultOAuthURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &GigaChatClient{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
	c.tokens = NewTokenStore(c.fetchToken)
	return c, nil
}

// Name returns the backend name.
func (c *GigaChatClient) Name() string { return "gigachat" }

type oauthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// fetchToken performs the synchronous authentication request.
func (c *GigaChatClient) fetchToken(ctx context.Context) (AccessToken, error) {
	form := url.Values{"scope": {c.cfg.Scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return AccessToken{}, &ProviderError{Message: "build auth request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.NewString())
	req.Header.Set("Authorization", "Basic "+c.cfg.AuthKey)

	body, status, err := c.do(req)
	if err != nil {
		return AccessToken{}, err
	}
	if status != http.StatusOK {
		return AccessToken{}, statusError(status, body)
	}

	var parsed oauthResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return AccessToken{}, &ProviderError{Message: "decode auth response", Err: err}
	}

	tok := AccessToken{
		Value:     parsed.AccessToken,
		ExpiresAt: expiryFromUnix(parsed.ExpiresAt),
	}
	log.Debug().Time("expires_at", tok.ExpiresAt).Msg("access token obtained")
	return tok, nil
}

// expiryFromUnix interprets the OAuth expires_at field, which the API
// reports in milliseconds; plain seconds are tolerated.
func expiryFromUnix(ts int64) time.Time {
	if ts > 10_000_000_000 {
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *TokenUsage `json:"usage"`
}

// Send issues one chat-completion call with the full message history and the
// generation cap. It never mutates the conversation and never retries.
func (c *GigaChatClient) Send(ctx context.Context, request Request) (*Reply, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(completionRequest{
		Model:     c.cfg.Model,
		Messages:  request.Messages,
		MaxTokens: request.MaxTokens,
	})
	if err != nil {
		return nil, &ProviderError{Message: "marshal completion request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Message: "build completion request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.Value)

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(status, body)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProviderError{Message: "decode completion response", Err: err}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, &ProviderError{Status: status, Message: "empty completion"}
	}

	msg := parsed.Choices[0].Message
	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	return &Reply{Message: msg, Usage: parsed.Usage}, nil
}

// BalanceItem is one entry of the token balance report.
type BalanceItem struct {
	Usage string  `json:"usage"`
	Value float64 `json:"value"`
}

// Balance queries the remaining token balance per model.
func (c *GigaChatClient) Balance(ctx context.Context) ([]BalanceItem, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/balance", nil)
	if err != nil {
		return nil, &ProviderError{Message: "build balance request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok.Value)

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, &ProviderError{Status: status, Message: "permission denied, check your tarification type"}
	default:
		return nil, statusError(status, body)
	}

	var parsed struct {
		Balance []BalanceItem `json:"balance"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProviderError{Message: "decode balance response", Err: err}
	}
	return parsed.Balance, nil
}

// do executes the request and reads the full body. Transport failures map to
// ProviderError.
func (c *GigaChatClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &ProviderError{Message: fmt.Sprintf("execute %s request", req.Method), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &ProviderError{Message: "read response", Err: err}
	}
	return body, resp.StatusCode, nil
}
