package api

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

const (
	defaultJWKSCacheTTL = 15 * time.Minute
	clockSkew           = time.Minute
)

// AuthConfig selects how session tokens are verified. A non-empty
// SharedSecret switches to HS256 verification for local and test setups;
// otherwise RS256 keys are looked up in JWKS.
type AuthConfig struct {
	JWKS         *keyfunc.JWKS
	Audience     string
	Issuer       string
	SharedSecret []byte
	KeyCacheTTL  time.Duration
}

// Auth validates session tokens and extracts the user id from the sub claim.
type Auth struct {
	cfg    AuthConfig
	parser *jwt.Parser
	keys   *keyCache
	now    func() time.Time
}

// NewAuth creates a new Auth instance.
func NewAuth(cfg AuthConfig) *Auth {
	if cfg.KeyCacheTTL == 0 {
		cfg.KeyCacheTTL = defaultJWKSCacheTTL
	}
	method := "RS256"
	if len(cfg.SharedSecret) > 0 {
		method = "HS256"
	}
	return &Auth{
		cfg: cfg,
		// Time-based claims are checked in verifyClaims with clock skew allowed.
		parser: jwt.NewParser(jwt.WithValidMethods([]string{method}), jwt.WithoutClaimsValidation()),
		keys:   &keyCache{ttl: cfg.KeyCacheTTL},
		now:    time.Now,
	}
}

// UserIDFromToken verifies a raw JWT and returns its subject.
func (a *Auth) UserIDFromToken(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", errBadAuthorization
	}
	var claims jwt.RegisteredClaims
	if _, err := a.parser.ParseWithClaims(tokenStr, &claims, a.signingKey); err != nil {
		return "", err
	}
	if err := a.verifyClaims(&claims); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (a *Auth) verifyClaims(c *jwt.RegisteredClaims) error {
	now := a.now()
	switch {
	case !c.VerifyExpiresAt(now.Add(-clockSkew), true):
		return errors.New("token expired")
	case !c.VerifyNotBefore(now.Add(clockSkew), false):
		return errors.New("token not valid yet")
	case !c.VerifyIssuedAt(now.Add(clockSkew), false):
		return errors.New("token used before issued")
	case a.cfg.Audience != "" && !c.VerifyAudience(a.cfg.Audience, true):
		return errors.New("invalid audience")
	case a.cfg.Issuer != "" && !c.VerifyIssuer(a.cfg.Issuer, true):
		return errors.New("invalid issuer")
	case c.Subject == "":
		return errors.New("missing sub")
	}
	return nil
}

func (a *Auth) signingKey(t *jwt.Token) (any, error) {
	if len(a.cfg.SharedSecret) > 0 {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.cfg.SharedSecret, nil
	}
	if a.cfg.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}
	kid, _ := t.Header["kid"].(string)
	if key, ok := a.keys.get(kid, a.now()); ok {
		return key, nil
	}
	key, err := a.cfg.JWKS.Keyfunc(t)
	if err != nil {
		return nil, err
	}
	a.keys.put(kid, key, a.now())
	return key, nil
}

// keyCache keeps resolved JWKS keys by kid so hot paths skip the JWKS lock.
type keyCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cachedKey
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

func (k *keyCache) get(kid string, now time.Time) (any, bool) {
	if kid == "" || k.ttl <= 0 {
		return nil, false
	}
	k.mu.RLock()
	e, ok := k.entries[kid]
	k.mu.RUnlock()
	if !ok || !now.Before(e.expiresAt) {
		return nil, false
	}
	return e.key, true
}

func (k *keyCache) put(kid string, key any, now time.Time) {
	if kid == "" || k.ttl <= 0 {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.entries == nil {
		k.entries = make(map[string]cachedKey)
	}
	k.entries[kid] = cachedKey{key: key, expiresAt: now.Add(k.ttl)}
}
