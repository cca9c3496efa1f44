package cloud

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultOAuthClientID is the public OAuth client used for password
	// grants when no custom client has been registered
	DefaultOAuthClientID = "particle"

	// DefaultOAuthClientSecret is the matching public client secret
	DefaultOAuthClientSecret = "particle"

	// tokenExpiryMargin is refreshed-before-expiry slack so a token never
	// dies mid-request
	tokenExpiryMargin = 30 * time.Second
)

// TokenSource yields the bearer token attached to cloud API requests.
// Implementations report failure as an error; the client propagates it
// without retrying, since a token that cannot be produced locally will
// not appear on a second attempt.
type TokenSource interface {
	AccessToken() (string, error)
}

// StaticToken is a TokenSource wrapping an already-issued access token.
type StaticToken string

// AccessToken implements TokenSource
func (t StaticToken) AccessToken() (string, error) {
	if t == "" {
		return "", NewAuthError("no access token configured")
	}
	return string(t), nil
}

// PasswordGrant is a TokenSource that exchanges account credentials for an
// access token via the OAuth password grant, caching the token until it
// nears expiry. Safe for concurrent use.
type PasswordGrant struct {
	// BaseURL is the API root hosting /oauth/token
	BaseURL string

	// Username is the account email address
	Username string

	// Password is the account password
	Password string

	// ClientID and ClientSecret identify the OAuth client. When empty the
	// public "particle" client is used.
	ClientID     string
	ClientSecret string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewPasswordGrant creates a password-grant token source for the production
// API using the public OAuth client.
func NewPasswordGrant(username, password string) *PasswordGrant {
	return &PasswordGrant{
		BaseURL:      DefaultBaseURL,
		Username:     username,
		Password:     password,
		ClientID:     DefaultOAuthClientID,
		ClientSecret: DefaultOAuthClientSecret,
		HTTPClient:   &http.Client{Timeout: DefaultTimeout},
	}
}

// tokenResponse mirrors the /oauth/token JSON wire shape.
type tokenResponse struct {
	AccessToken *string `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresIn   int     `json:"expires_in"`
}

// AccessToken implements TokenSource. The first call performs the grant;
// later calls reuse the cached token until it nears expiry.
func (g *PasswordGrant) AccessToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.expires.Add(-tokenExpiryMargin)) {
		return g.token, nil
	}

	token, expiresIn, err := g.requestToken()
	if err != nil {
		return "", err
	}

	g.token = token
	g.expires = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return g.token, nil
}

// Invalidate discards the cached token, forcing the next AccessToken call
// to perform a fresh grant.
func (g *PasswordGrant) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = ""
	g.expires = time.Time{}
}

// requestToken performs the password grant. Caller holds g.mu.
func (g *PasswordGrant) requestToken() (string, int, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", g.Username)
	form.Set("password", g.Password)

	endpoint := strings.TrimRight(g.BaseURL, "/") + "/oauth/token"
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, NewNetworkError("failed to create token request", err)
	}

	clientID, clientSecret := g.ClientID, g.ClientSecret
	if clientID == "" {
		clientID = DefaultOAuthClientID
		clientSecret = DefaultOAuthClientSecret
	}
	req.SetBasicAuth(clientID, clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := g.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", 0, NewNetworkError("token request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, NewNetworkError("failed to read token response", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return "", 0, NewAuthError("credentials rejected by the cloud")
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, NewHTTPError(resp.StatusCode, fmt.Sprintf("token request returned status %d", resp.StatusCode))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", 0, NewParseError("failed to parse token response", err)
	}
	if tok.AccessToken == nil || *tok.AccessToken == "" {
		return "", 0, NewProtocolError("token response missing access_token", nil)
	}

	return *tok.AccessToken, tok.ExpiresIn, nil
}
