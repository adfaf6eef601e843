package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
)

const testClientID = "client-123.apps.googleusercontent.com"

type fakeGoogle struct {
	srv        *httptest.Server
	key        *rsa.PrivateKey
	discovery  atomic.Int32
	failFirstN int32
}

func newFakeGoogle(t *testing.T, failFirstN int32) *fakeGoogle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa key: %v", err)
	}
	g := &fakeGoogle{key: key, failFirstN: failFirstN}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		if g.discovery.Add(1) <= g.failFirstN {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"jwks_uri": g.srv.URL + "/certs"})
	})
	mux.HandleFunc("/certs", func(w http.ResponseWriter, r *http.Request) {
		pub := g.key.PublicKey
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "k1",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	})
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGoogle) verifier(t *testing.T) IDTokenVerifier {
	t.Helper()
	v, err := NewGoogleVerifier(GoogleVerifierConfig{
		ClientID:     testClientID,
		DiscoveryURL: g.srv.URL + "/.well-known/openid-configuration",
		HTTPClient:   g.srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewGoogleVerifier: %v", err)
	}
	return v
}

func (g *fakeGoogle) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	base := jwt.MapClaims{
		"iss": "https://accounts.google.com",
		"aud": testClientID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range claims {
		base[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, base)
	tok.Header["kid"] = "k1"
	s, err := tok.SignedString(g.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestGoogleVerifierChecksClaims(t *testing.T) {
	t.Parallel()
	g := newFakeGoogle(t, 0)
	v := g.verifier(t)
	ctx := context.Background()

	ident, err := v.Verify(ctx, g.sign(t, jwt.MapClaims{"sub": "g-1", "email": "a@example.com", "email_verified": true, "nonce": "n"}))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ident.Subject != "g-1" || !ident.EmailVerified || ident.Nonce != "n" {
		t.Fatalf("identity = %+v", ident)
	}

	cases := map[string]jwt.MapClaims{
		"wrong audience": {"sub": "g-1", "aud": "someone-else"},
		"wrong issuer":   {"sub": "g-1", "iss": "https://evil.example.com"},
		"expired":        {"sub": "g-1", "exp": time.Now().Add(-time.Hour).Unix()},
		"missing sub":    {},
	}
	for name, claims := range cases {
		if _, err := v.Verify(ctx, g.sign(t, claims)); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestGoogleVerifierRetriesDiscovery(t *testing.T) {
	t.Parallel()
	g := newFakeGoogle(t, 1)
	v := g.verifier(t)
	token := g.sign(t, jwt.MapClaims{"sub": "g-2"})

	if _, err := v.Verify(context.Background(), token); err == nil {
		t.Fatalf("expected first verify to fail while discovery is down")
	}
	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Fatalf("second verify should recover: %v", err)
	}
}

func TestLoginWithGoogle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	g := newFakeGoogle(t, 0)
	svc := env.authService(nil, g.verifier(t))
	ctx := context.Background()

	grant, err := svc.IssueNonce(ctx, "google")
	if err != nil {
		t.Fatalf("IssueNonce: %v", err)
	}
	idToken := g.sign(t, jwt.MapClaims{
		"sub":            "google-sub-1",
		"email":          "Pilgrim@Example.com",
		"email_verified": true,
		"name":           "Pilgrim Reader",
		"nonce":          grant.Nonce,
	})

	s, err := svc.LoginWithGoogle(ctx, idToken, grant.NonceID)
	if err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}
	if s.User.Email != "pilgrim@example.com" || s.User.Role != types.RoleAdmin || s.User.EmailVerifiedAt == nil {
		t.Fatalf("user = %+v", s.User)
	}

	_, err = svc.LoginWithGoogle(ctx, idToken, grant.NonceID)
	wantAPIError(t, err, http.StatusUnauthorized, "invalid_nonce")

	second, err := svc.IssueNonce(ctx, "google")
	if err != nil {
		t.Fatalf("IssueNonce: %v", err)
	}
	again, err := svc.LoginWithGoogle(ctx, g.sign(t, jwt.MapClaims{"sub": "google-sub-1", "nonce": second.Nonce}), second.NonceID)
	if err != nil {
		t.Fatalf("LoginWithGoogle(returning): %v", err)
	}
	if again.User.ID != s.User.ID {
		t.Fatalf("returning google user got a new account")
	}

	third, _ := svc.IssueNonce(ctx, "google")
	_, err = svc.LoginWithGoogle(ctx, g.sign(t, jwt.MapClaims{"sub": "google-sub-1", "nonce": "forged"}), third.NonceID)
	wantAPIError(t, err, http.StatusUnauthorized, "invalid_nonce")

	_, err = svc.IssueNonce(ctx, "apple")
	wantAPIError(t, err, http.StatusBadRequest, "unsupported_provider")
}

func TestLoginWithGoogleDisabled(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := env.authService(nil, nil)
	_, err := svc.LoginWithGoogle(context.Background(), "x", uuid.Nil)
	wantAPIError(t, err, http.StatusServiceUnavailable, "google_signin_disabled")
}
