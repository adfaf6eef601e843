package services

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const googleDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleIdentity is the subset of ID token claims sign-in needs.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Nonce         string
}

type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type GoogleVerifierConfig struct {
	ClientID     string
	DiscoveryURL string
	HTTPClient   *http.Client
	KeyTTL       time.Duration
}

type googleVerifier struct {
	clientID     string
	discoveryURL string
	http         *http.Client
	keyTTL       time.Duration

	mu        sync.RWMutex
	jwksURL   string
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewGoogleVerifier(cfg GoogleVerifierConfig) (IDTokenVerifier, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}
	if cfg.DiscoveryURL == "" {
		cfg.DiscoveryURL = googleDiscoveryURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.KeyTTL <= 0 {
		cfg.KeyTTL = 6 * time.Hour
	}
	return &googleVerifier{
		clientID:     cfg.ClientID,
		discoveryURL: cfg.DiscoveryURL,
		http:         cfg.HTTPClient,
		keyTTL:       cfg.KeyTTL,
		keys:         map[string]*rsa.PublicKey{},
	}, nil
}

func (v *googleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, errors.New("id_token is empty")
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30*time.Second),
	)
	_, err := parser.ParseWithClaims(idToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("id_token header has no kid")
		}
		return v.key(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	iss, _ := claims["iss"].(string)
	if !issuerAllowed(iss) {
		return nil, fmt.Errorf("unexpected issuer %q", iss)
	}
	out := &GoogleIdentity{}
	out.Subject, _ = claims["sub"].(string)
	out.Email, _ = claims["email"].(string)
	out.Name, _ = claims["name"].(string)
	out.Nonce, _ = claims["nonce"].(string)
	switch ev := claims["email_verified"].(type) {
	case bool:
		out.EmailVerified = ev
	case string:
		out.EmailVerified = strings.EqualFold(ev, "true")
	}
	if out.Subject == "" {
		return nil, errors.New("id_token has no sub")
	}
	return out, nil
}

func issuerAllowed(iss string) bool {
	for _, allowed := range googleIssuers {
		if iss == allowed {
			return true
		}
	}
	return false
}

// key returns the signing key for kid, refetching the key set when it is
// stale or kid is unknown. A failed refetch falls back to a cached key.
func (v *googleVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	k, fresh := v.keys[kid], time.Since(v.fetchedAt) < v.keyTTL
	v.mu.RUnlock()
	if k != nil && fresh {
		return k, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		if k != nil {
			return k, nil
		}
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if k = v.keys[kid]; k == nil {
		return nil, fmt.Errorf("no signing key for kid %q", kid)
	}
	return k, nil
}

func (v *googleVerifier) refreshKeys(ctx context.Context) error {
	jwksURL, err := v.jwksLocation(ctx)
	if err != nil {
		return err
	}
	var set struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := v.getJSON(ctx, jwksURL, &set); err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jk := range set.Keys {
		if jk.Kty != "RSA" || jk.Kid == "" {
			continue
		}
		pub, err := rsaPublicKey(jk.N, jk.E)
		if err != nil {
			continue
		}
		keys[jk.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("jwks has no RSA keys")
	}
	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()
	return nil
}

// jwksLocation resolves the key set URL from discovery. Only a successful
// lookup is remembered so a transient failure is retried on the next call.
func (v *googleVerifier) jwksLocation(ctx context.Context) (string, error) {
	v.mu.RLock()
	u := v.jwksURL
	v.mu.RUnlock()
	if u != "" {
		return u, nil
	}
	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := v.getJSON(ctx, v.discoveryURL, &doc); err != nil {
		return "", fmt.Errorf("oidc discovery: %w", err)
	}
	if doc.JWKSURI == "" {
		return "", errors.New("oidc discovery: no jwks_uri")
	}
	v.mu.Lock()
	v.jwksURL = doc.JWKSURI
	v.mu.Unlock()
	return doc.JWKSURI, nil
}

func (v *googleVerifier) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := v.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, res.Status)
	}
	return json.NewDecoder(res.Body).Decode(dst)
}

func rsaPublicKey(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}
	e := new(big.Int).SetBytes(eb)
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, errors.New("bad RSA exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(e.Int64())}, nil
}

func hashNonce(nonce string) string {
	sum := sha256.Sum256([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func nonceMatches(claim, storedHash string) bool {
	got := hashNonce(claim)
	return subtle.ConstantTimeCompare([]byte(got), []byte(storedHash)) == 1
}
