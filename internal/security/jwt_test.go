package security

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testClientID = "client_01TEST"

type signingKey struct {
	kid  string
	priv *rsa.PrivateKey
}

func newSigningKey(t *testing.T, kid string) signingKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return signingKey{kid: kid, priv: priv}
}

func (k signingKey) jwk() map[string]any {
	return map[string]any{
		"kty": "RSA",
		"kid": k.kid,
		"use": "sig",
		"alg": "RS256",
		"n":   base64.RawURLEncoding.EncodeToString(k.priv.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.priv.E)).Bytes()),
	}
}

func (k signingKey) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = k.kid
	signed, err := token.SignedString(k.priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// jwksServer serves a mutable key set at /sso/jwks/{clientID}.
type jwksServer struct {
	*httptest.Server
	mu      sync.Mutex
	keys    []signingKey
	fetches atomic.Int32
}

func newJWKSServer(t *testing.T, keys ...signingKey) *jwksServer {
	t.Helper()
	s := &jwksServer{keys: keys}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sso/jwks/"+testClientID {
			http.NotFound(w, r)
			return
		}
		s.fetches.Add(1)
		s.mu.Lock()
		set := make([]map[string]any, 0, len(s.keys))
		for _, k := range s.keys {
			set = append(set, k.jwk())
		}
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": set})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) setKeys(keys ...signingKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
}

type stubDirectory struct {
	user  DirectoryUser
	err   error
	calls int
}

func (d *stubDirectory) LookupUser(_ context.Context, userID string) (DirectoryUser, error) {
	d.calls++
	if d.err != nil {
		return DirectoryUser{}, d.err
	}
	u := d.user
	u.ID = userID
	return u, nil
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user_01",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

func newTestVerifier(srv *jwksServer, dir Directory, admins ...string) *Verifier {
	return NewVerifier(VerifierConfig{
		ClientID:  testClientID,
		Keys:      NewJWKSCache(srv.URL, srv.Client(), time.Hour),
		Directory: dir,
		Admins:    NewAllowList(admins),
	})
}

func TestAuthenticateWithEmailClaim(t *testing.T) {
	key := newSigningKey(t, "k1")
	srv := newJWKSServer(t, key)
	dir := &stubDirectory{}
	v := newTestVerifier(srv, dir, " Admin@Example.com ")

	claims := validClaims()
	claims["email"] = "admin@example.com"
	claims["first_name"] = "Ada"
	claims["family_name"] = "Lovelace"

	id, err := v.Authenticate(context.Background(), key.sign(t, claims))
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.ID != "user_01" || id.Email != "admin@example.com" || !id.IsAdmin {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.FirstName != "Ada" || id.LastName != "Lovelace" {
		t.Fatalf("unexpected names: %+v", id)
	}
	if dir.calls != 0 {
		t.Fatalf("expected no directory lookup, got %d", dir.calls)
	}

	if _, err := v.Authenticate(context.Background(), key.sign(t, claims)); err != nil {
		t.Fatalf("second authenticate: %v", err)
	}
	if got := srv.fetches.Load(); got != 1 {
		t.Fatalf("expected one JWKS fetch, got %d", got)
	}
}

func TestAuthenticateFallsBackToDirectory(t *testing.T) {
	key := newSigningKey(t, "k1")
	srv := newJWKSServer(t, key)
	dir := &stubDirectory{user: DirectoryUser{Email: "someone@example.com", FirstName: "Some", LastName: "One"}}
	v := newTestVerifier(srv, dir, "admin@example.com")

	id, err := v.Authenticate(context.Background(), key.sign(t, validClaims()))
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.Email != "someone@example.com" || id.FirstName != "Some" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.IsAdmin {
		t.Fatalf("expected non-admin")
	}
}

func TestAuthenticateSkipsDirectoryWhenEmailPresent(t *testing.T) {
	key := newSigningKey(t, "k1")
	srv := newJWKSServer(t, key)
	dir := &stubDirectory{user: DirectoryUser{Email: "other@example.com", FirstName: "Other"}}
	v := newTestVerifier(srv, dir, "admin@example.com")

	claims := validClaims()
	claims["email"] = "admin@example.com"
	for i := 0; i < 3; i++ {
		id, err := v.Authenticate(context.Background(), key.sign(t, claims))
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if id.Email != "admin@example.com" || !id.IsAdmin || id.FirstName != "" {
			t.Fatalf("unexpected identity: %+v", id)
		}
	}
	if dir.calls != 0 {
		t.Fatalf("expected no directory lookup, got %d", dir.calls)
	}
}

func TestAuthenticateDirectoryFailureIsNotFatal(t *testing.T) {
	key := newSigningKey(t, "k1")
	srv := newJWKSServer(t, key)
	v := newTestVerifier(srv, &stubDirectory{err: errors.New("boom")})

	id, err := v.Authenticate(context.Background(), key.sign(t, validClaims()))
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.Email != "" || id.IsAdmin {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestParseTokenExpired(t *testing.T) {
	key := newSigningKey(t, "k1")
	srv := newJWKSServer(t, key)
	v := newTestVerifier(srv, nil)

	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err := v.ParseToken(context.Background(), key.sign(t, claims))
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	key := newSigningKey(t, "k1")
	forged := signingKey{kid: "k1", priv: newSigningKey(t, "x").priv}
	srv := newJWKSServer(t, key)
	v := newTestVerifier(srv, nil)

	_, err := v.ParseToken(context.Background(), forged.sign(t, validClaims()))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	_, err = v.ParseToken(context.Background(), "not-a-jwt")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestParseTokenRejectsHMAC(t *testing.T) {
	key := newSigningKey(t, "k1")
	srv := newJWKSServer(t, key)
	v := newTestVerifier(srv, nil)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	token.Header["kid"] = "k1"
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.ParseToken(context.Background(), signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestUnknownKidForcesOneRefresh(t *testing.T) {
	oldKey := newSigningKey(t, "k1")
	newKey := newSigningKey(t, "k2")
	srv := newJWKSServer(t, oldKey)
	v := newTestVerifier(srv, nil)
	ctx := context.Background()

	if _, err := v.ParseToken(ctx, oldKey.sign(t, validClaims())); err != nil {
		t.Fatalf("parse with old key: %v", err)
	}

	srv.setKeys(oldKey, newKey)
	if _, err := v.ParseToken(ctx, newKey.sign(t, validClaims())); err != nil {
		t.Fatalf("parse with rotated key: %v", err)
	}
	if got := srv.fetches.Load(); got != 2 {
		t.Fatalf("expected 2 fetches after rotation, got %d", got)
	}

	unknown := newSigningKey(t, "k3")
	if _, err := v.ParseToken(ctx, unknown.sign(t, validClaims())); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown kid, got %v", err)
	}
	if got := srv.fetches.Load(); got != 2 {
		t.Fatalf("expected forced refresh to be rate limited, got %d fetches", got)
	}
}

func TestInvalidateRefetches(t *testing.T) {
	key := newSigningKey(t, "k1")
	srv := newJWKSServer(t, key)
	cache := NewJWKSCache(srv.URL, srv.Client(), time.Hour)
	v := NewVerifier(VerifierConfig{ClientID: testClientID, Keys: cache})

	for i := 0; i < 2; i++ {
		if _, err := v.ParseToken(context.Background(), key.sign(t, validClaims())); err != nil {
			t.Fatalf("parse: %v", err)
		}
		cache.Invalidate(testClientID)
	}
	if got := srv.fetches.Load(); got != 2 {
		t.Fatalf("expected 2 fetches, got %d", got)
	}
}

func TestJWKSRefetchedAfterTTL(t *testing.T) {
	key := newSigningKey(t, "k1")
	srv := newJWKSServer(t, key)
	cache := NewJWKSCache(srv.URL, srv.Client(), time.Hour)
	clock := time.Now()
	cache.now = func() time.Time { return clock }
	v := NewVerifier(VerifierConfig{ClientID: testClientID, Keys: cache})
	ctx := context.Background()

	parse := func() {
		t.Helper()
		if _, err := v.ParseToken(ctx, key.sign(t, validClaims())); err != nil {
			t.Fatalf("parse: %v", err)
		}
	}

	parse()
	clock = clock.Add(59 * time.Minute)
	parse()
	if got := srv.fetches.Load(); got != 1 {
		t.Fatalf("expected cached set within ttl, got %d fetches", got)
	}

	clock = clock.Add(2 * time.Minute)
	parse()
	parse()
	if got := srv.fetches.Load(); got != 2 {
		t.Fatalf("expected exactly one refetch after ttl, got %d fetches", got)
	}
}

func TestJWKSExpiredSetKeptWhenRefreshFails(t *testing.T) {
	key := newSigningKey(t, "k1")
	srv := newJWKSServer(t, key)
	cache := NewJWKSCache(srv.URL, srv.Client(), time.Hour)
	clock := time.Now()
	cache.now = func() time.Time { return clock }
	v := NewVerifier(VerifierConfig{ClientID: testClientID, Keys: cache})

	if _, err := v.ParseToken(context.Background(), key.sign(t, validClaims())); err != nil {
		t.Fatalf("parse: %v", err)
	}
	srv.Close()
	clock = clock.Add(2 * time.Hour)
	if _, err := v.ParseToken(context.Background(), key.sign(t, validClaims())); err != nil {
		t.Fatalf("expected stale keys to be used, got %v", err)
	}
}

func TestVerifierNotConfigured(t *testing.T) {
	v := NewVerifier(VerifierConfig{})
	if _, err := v.ParseToken(context.Background(), "abc"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]bool{
		"":              false,
		"Bearer":        false,
		"Bearer   ":     false,
		"Basic abc":     false,
		"Bearer abc":    true,
		"bearer abc.de": true,
	}
	for header, ok := range cases {
		_, err := BearerToken(header)
		if ok && err != nil {
			t.Fatalf("header %q: unexpected error %v", header, err)
		}
		if !ok && !errors.Is(err, ErrMissingToken) {
			t.Fatalf("header %q: expected ErrMissingToken, got %v", header, err)
		}
	}
}

func TestEmailFromClaimsOrder(t *testing.T) {
	claims := jwt.MapClaims{"upn": "upn@example.com", "preferred_username": "pref@example.com"}
	if got := EmailFromClaims(claims); got != "pref@example.com" {
		t.Fatalf("expected preferred_username, got %q", got)
	}
	claims["email"] = " "
	claims["user_email"] = "user@example.com"
	if got := EmailFromClaims(claims); got != "user@example.com" {
		t.Fatalf("expected user_email, got %q", got)
	}
}

func TestAllowList(t *testing.T) {
	list := NewAllowList([]string{" A@Example.com", "", "b@example.com "})
	if list.Len() != 2 {
		t.Fatalf("expected 2 admins, got %d", list.Len())
	}
	if !list.Contains("a@example.COM") || list.Contains("c@example.com") || list.Contains("") {
		t.Fatalf("unexpected membership")
	}
	var empty *AllowList
	if empty.Contains("a@example.com") {
		t.Fatalf("nil list must be empty")
	}
}
