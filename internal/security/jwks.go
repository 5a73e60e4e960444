package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	defaultJWKSTTL = 12 * time.Hour
	// minForcedRefresh bounds refetches triggered by unknown signing keys.
	minForcedRefresh = time.Minute
	maxJWKSBytes     = 1 << 20
)

// JWKSCache fetches and caches JSON Web Key Sets per client id.
type JWKSCache struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*jwksEntry
}

type jwksEntry struct {
	keys        keyfunc.Keyfunc
	fetchedAt   time.Time
	lastForced  time.Time
	fetchFlight *sync.Mutex
}

// NewJWKSCache returns a cache resolving sets at {baseURL}/sso/jwks/{clientID}.
func NewJWKSCache(baseURL string, client *http.Client, ttl time.Duration) *JWKSCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = defaultJWKSTTL
	}
	return &JWKSCache{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]*jwksEntry{},
	}
}

// URL returns the JWKS endpoint for clientID.
func (c *JWKSCache) URL(clientID string) string {
	return c.baseURL + "/sso/jwks/" + clientID
}

// Invalidate drops the cached set for clientID.
func (c *JWKSCache) Invalidate(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, clientID)
}

// Keyfunc returns a jwt.Keyfunc backed by the cached set for clientID. A key
// lookup failure triggers one forced refresh, rate limited per client.
func (c *JWKSCache) Keyfunc(ctx context.Context, clientID string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		keys, err := c.get(ctx, clientID, false)
		if err != nil {
			return nil, err
		}
		key, errKey := keys.Keyfunc(token)
		if errKey == nil {
			return key, nil
		}
		if !c.allowForced(clientID) {
			return nil, errKey
		}
		log.WithField("kid", token.Header["kid"]).Info("signing key not found; refreshing JWKS")
		keys, err = c.get(ctx, clientID, true)
		if err != nil {
			return nil, err
		}
		return keys.Keyfunc(token)
	}
}

func (c *JWKSCache) entry(clientID string) *jwksEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[clientID]
	if !ok {
		e = &jwksEntry{fetchFlight: &sync.Mutex{}}
		c.entries[clientID] = e
	}
	return e
}

func (c *JWKSCache) allowForced(clientID string) bool {
	e := c.entry(clientID)
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if !e.lastForced.IsZero() && now.Sub(e.lastForced) < minForcedRefresh {
		return false
	}
	e.lastForced = now
	return true
}

func (c *JWKSCache) get(ctx context.Context, clientID string, force bool) (keyfunc.Keyfunc, error) {
	e := c.entry(clientID)

	// One fetch per client at a time; waiters reuse the fresh result.
	e.fetchFlight.Lock()
	defer e.fetchFlight.Unlock()

	c.mu.Lock()
	keys, fetchedAt := e.keys, e.fetchedAt
	c.mu.Unlock()
	if !force && keys != nil && c.now().Sub(fetchedAt) < c.ttl {
		return keys, nil
	}

	fresh, err := c.fetch(ctx, clientID)
	if err != nil {
		if keys != nil {
			log.WithError(err).Warn("JWKS refresh failed; using cached keys")
			return keys, nil
		}
		return nil, err
	}
	c.mu.Lock()
	e.keys = fresh
	e.fetchedAt = c.now()
	c.mu.Unlock()
	return fresh, nil
}

func (c *JWKSCache) fetch(ctx context.Context, clientID string) (keyfunc.Keyfunc, error) {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(clientID), nil)
	if errReq != nil {
		return nil, fmt.Errorf("jwks: build request: %w", errReq)
	}
	req.Header.Set("Accept", "application/json")
	resp, errDo := c.client.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("jwks: fetch: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks: fetch: status %d", resp.StatusCode)
	}
	raw, errRead := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if errRead != nil {
		return nil, fmt.Errorf("jwks: read: %w", errRead)
	}
	keys, errParse := keyfunc.NewJWKSetJSON(json.RawMessage(raw))
	if errParse != nil {
		return nil, fmt.Errorf("jwks: parse: %w", errParse)
	}
	return keys, nil
}
