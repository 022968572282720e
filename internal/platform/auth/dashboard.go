package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/pxa264/e-shop-sub001/internal/platform/config"
	"github.com/pxa264/e-shop-sub001/internal/platform/httpx"
)

var (
	// ErrJWKSKeyNotFound is returned when the requested key ID is absent from the JWKS document.
	ErrJWKSKeyNotFound = errors.New("auth: jwks key not found")
	// ErrJWKSFetchFailed wraps transport or decoding errors while refreshing JWKS.
	ErrJWKSFetchFailed = errors.New("auth: jwks fetch failed")
)

const defaultJWKSRefreshInterval = 15 * time.Minute

// dashboardRoles is the closed allow-list of staff roles permitted on the
// back-office surface. Either the role code or the role type claim may match.
var dashboardRoles = map[string]struct{}{
	"super-admin": {},
	"operator":    {},
	"editor":      {},
}

// JWKSCache lazily fetches and caches JSON Web Keys for dashboard token verification.
type JWKSCache struct {
	url    string
	client *http.Client
	now    func() time.Time

	refreshInterval time.Duration

	mu     sync.RWMutex
	keys   map[string]jose.JSONWebKey
	expiry time.Time
}

// JWKSOption customises JWKSCache behaviour.
type JWKSOption func(*JWKSCache)

// WithJWKSHTTPClient overrides the HTTP client used to fetch JWKS documents.
func WithJWKSHTTPClient(client *http.Client) JWKSOption {
	return func(c *JWKSCache) {
		if client != nil {
			c.client = client
		}
	}
}

// WithJWKSRefreshInterval overrides the cache validity window.
func WithJWKSRefreshInterval(d time.Duration) JWKSOption {
	return func(c *JWKSCache) {
		if d > 0 {
			c.refreshInterval = d
		}
	}
}

// WithJWKSClock injects a custom time source (useful for tests).
func WithJWKSClock(now func() time.Time) JWKSOption {
	return func(c *JWKSCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewJWKSCache constructs a JWKS cache for the provided URL.
func NewJWKSCache(url string, opts ...JWKSOption) *JWKSCache {
	cache := &JWKSCache{
		url:             url,
		client:          &http.Client{Timeout: 10 * time.Second},
		now:             time.Now,
		refreshInterval: defaultJWKSRefreshInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cache)
		}
	}
	return cache
}

// Keyfunc returns a jwt.Keyfunc backed by the cache.
func (c *JWKSCache) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("auth: token missing kid header")
		}
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("auth: unexpected signing method %v", token.Method)
		}
		return c.Key(ctx, kid)
	}
}

// Key resolves the public key for the provided kid, refreshing the JWKS when
// the cache is stale or the kid is unknown.
func (c *JWKSCache) Key(ctx context.Context, kid string) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.stale() {
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
	}
	if key, ok := c.cachedKey(kid); ok {
		return key, nil
	}

	// Unknown kid may indicate key rotation; refresh once before failing.
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok := c.cachedKey(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrJWKSKeyNotFound, kid)
}

func (c *JWKSCache) cachedKey(kid string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	jwk, ok := c.keys[kid]
	if !ok {
		return nil, false
	}
	return jwk.Key, true
}

func (c *JWKSCache) stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys) == 0 || !c.now().Before(c.expiry)
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode jwks: %v", ErrJWKSFetchFailed, err)
	}

	keys := make(map[string]jose.JSONWebKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.KeyID == "" || !jwk.Valid() {
			continue
		}
		keys[jwk.KeyID] = jwk
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: empty key set", ErrJWKSFetchFailed)
	}

	c.mu.Lock()
	c.keys = keys
	c.expiry = c.now().Add(c.refreshInterval)
	c.mu.Unlock()
	return nil
}

// StaffIdentity captures the verified dashboard principal.
type StaffIdentity struct {
	Subject string
	Email   string
	Role    string

	Claims map[string]any
}

type staffIdentityContextKey struct{}

// WithStaffIdentity attaches the verified staff identity to the request context.
func WithStaffIdentity(ctx context.Context, identity *StaffIdentity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, staffIdentityContextKey{}, identity)
}

// StaffIdentityFromContext retrieves the identity stored by the middleware.
func StaffIdentityFromContext(ctx context.Context) (*StaffIdentity, bool) {
	identity, ok := ctx.Value(staffIdentityContextKey{}).(*StaffIdentity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// DashboardAuthenticator validates back-office JWTs against a JWKS endpoint
// and enforces the staff role allow-list.
type DashboardAuthenticator struct {
	cache    *JWKSCache
	issuer   string
	audience string
}

// NewDashboardAuthenticator constructs the dashboard policy middleware factory.
func NewDashboardAuthenticator(cache *JWKSCache, cfg config.DashboardConfig) *DashboardAuthenticator {
	return &DashboardAuthenticator{
		cache:    cache,
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
	}
}

// Require enforces a valid staff token on the request. Missing or malformed
// tokens get 401; verified identities outside the allow-list get 403.
func (d *DashboardAuthenticator) Require() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "dashboard token missing", http.StatusUnauthorized))
				return
			}
			if d == nil || d.cache == nil {
				httpx.WriteError(ctx, w, httpx.NewError("verification_unavailable", "dashboard verification unavailable", http.StatusServiceUnavailable))
				return
			}

			parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})}
			if d.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(d.issuer))
			}
			if d.audience != "" {
				parserOpts = append(parserOpts, jwt.WithAudience(d.audience))
			}

			claims := jwt.MapClaims{}
			if _, err := jwt.NewParser(parserOpts...).ParseWithClaims(tokenStr, claims, d.cache.Keyfunc(ctx)); err != nil {
				status := http.StatusUnauthorized
				code := "invalid_token"
				if errors.Is(err, ErrJWKSFetchFailed) {
					status = http.StatusServiceUnavailable
					code = "jwks_unavailable"
				}
				httpx.WriteError(ctx, w, httpx.NewError(code, "dashboard token verification failed", status))
				return
			}

			role := staffRoleFromClaims(claims)
			if _, allowed := dashboardRoles[role]; !allowed {
				httpx.WriteError(ctx, w, httpx.NewError("forbidden", "staff role not permitted", http.StatusForbidden))
				return
			}

			subject, _ := claims["sub"].(string)
			email, _ := claims["email"].(string)
			identity := &StaffIdentity{
				Subject: subject,
				Email:   email,
				Role:    role,
				Claims:  map[string]any(claims),
			}

			next.ServeHTTP(w, r.WithContext(WithStaffIdentity(ctx, identity)))
		})
	}
}

func staffRoleFromClaims(claims jwt.MapClaims) string {
	if role := normaliseRole(claimAsString(claims, "role")); role != "" {
		return role
	}
	return normaliseRole(claimAsString(claims, "role_type"))
}
