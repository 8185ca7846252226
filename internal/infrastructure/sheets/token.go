package sheets

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

const spreadsheetsScope = "https://www.googleapis.com/auth/spreadsheets"

type credentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// TokenSource exchanges a signed service-account JWT grant for short-lived
// Sheets API access tokens and caches them until shortly before expiry.
type TokenSource struct {
	http  *resty.Client
	creds credentials
	key   *rsa.PrivateKey

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource loads the service-account key file. tokenURL overrides
// the key file's token endpoint when set (tests point it at a local stub).
func NewTokenSource(credsPath, tokenURL string) (*TokenSource, error) {
	data, err := os.ReadFile(credsPath)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}

	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if tokenURL != "" {
		creds.TokenURI = tokenURL
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" || creds.TokenURI == "" {
		return nil, fmt.Errorf("service account key is missing client_email, private_key or token_uri")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account private key: %w", err)
	}

	return &TokenSource{
		http:  resty.New().SetTimeout(10 * time.Second),
		creds: creds,
		key:   key,
	}, nil
}

// Token returns a valid access token, refreshing if the cached one is
// within a minute of expiring.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Until(t.expiry) > time.Minute {
		return t.token, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   t.creds.ClientEmail,
		"scope": spreadsheetsScope,
		"aud":   t.creds.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token grant: %w", err)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := t.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type": "urn:ietf:params:oauth:grant-type:jwt-bearer",
			"assertion":  assertion,
		}).
		SetResult(&out).
		Post(t.creds.TokenURI)
	if err != nil {
		return "", fmt.Errorf("exchange token grant: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("exchange token grant: status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("exchange token grant: empty access token")
	}

	t.token = out.AccessToken
	t.expiry = now.Add(time.Duration(out.ExpiresIn) * time.Second)
	return t.token, nil
}
