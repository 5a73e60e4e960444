package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/folioworks/portfolio-api/internal/naming"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// JWT validation errors.
var (
	// ErrMissingToken indicates the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
	// ErrNotConfigured indicates no client id is set for token verification.
	ErrNotConfigured = errors.New("auth not configured")
)

// emailClaims are checked in order when resolving the caller's email.
var emailClaims = []string{"email", "user_email", "preferred_username", "upn"}

// signingMethods are the algorithms accepted from the identity provider.
var signingMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "PS256"}

// Identity is the verified caller.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsAdmin   bool   `json:"-"`
}

// VerifierConfig configures token verification.
type VerifierConfig struct {
	ClientID string
	// Issuer is enforced when set.
	Issuer string
	Keys   *JWKSCache
	// Directory resolves profile fields missing from the token; optional.
	Directory Directory
	Admins    *AllowList
	Leeway    time.Duration
}

// Verifier validates bearer tokens and resolves the caller identity.
type Verifier struct {
	cfg VerifierConfig
}

// NewVerifier constructs a verifier.
func NewVerifier(cfg VerifierConfig) *Verifier {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.Admins == nil {
		cfg.Admins = NewAllowList(nil)
	}
	return &Verifier{cfg: cfg}
}

// Configured reports whether tokens can be verified at all.
func (v *Verifier) Configured() bool {
	return v != nil && v.cfg.ClientID != "" && v.cfg.Keys != nil
}

// ParseToken validates tokenString against the client's JWKS and returns its claims.
func (v *Verifier) ParseToken(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	if !v.Configured() {
		return nil, ErrNotConfigured
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(signingMethods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.cfg.Keys.Keyfunc(ctx, v.cfg.ClientID), opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate verifies the token and builds the caller identity. A token
// without an email claim is resolved through the directory, which also fills
// any missing names; lookup failures are logged and never fail authentication.
func (v *Verifier) Authenticate(ctx context.Context, tokenString string) (*Identity, error) {
	claims, err := v.ParseToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	sub, _ := claims.GetSubject()
	id := &Identity{
		ID:        sub,
		Email:     EmailFromClaims(claims),
		FirstName: firstString(claims, "firstName", "given_name"),
		LastName:  firstString(claims, "lastName", "family_name"),
	}

	if v.cfg.Directory != nil && id.ID != "" && id.Email == "" {
		user, errLookup := v.cfg.Directory.LookupUser(ctx, id.ID)
		if errLookup != nil {
			log.WithError(errLookup).WithField("user", id.ID).Warn("directory user lookup failed")
		} else {
			id.Email = user.Email
			if id.FirstName == "" {
				id.FirstName = user.FirstName
			}
			if id.LastName == "" {
				id.LastName = user.LastName
			}
		}
	}
	id.IsAdmin = v.cfg.Admins.Contains(id.Email)
	return id, nil
}

// EmailFromClaims returns the first non-empty email-bearing claim.
func EmailFromClaims(claims jwt.MapClaims) string {
	for _, name := range emailClaims {
		if s, ok := claims[name].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstString(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		if v, ok := naming.Lookup(claims, name); ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}
