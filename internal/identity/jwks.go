package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// refreshInterval bounds how often an unknown kid may trigger a refetch.
const refreshInterval = 5 * time.Minute

// jwk is the subset of an RFC 7517 key the resolver needs.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSClient fetches and caches RSA signing keys by kid. A kid missing from
// the cache refetches the document at most once per refreshInterval, so
// rotated keys are picked up without a restart.
type JWKSClient struct {
	url  string
	http *http.Client
	now  func() time.Time

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// NewJWKSClient creates a client for the JWKS document at url.
func NewJWKSClient(url string) *JWKSClient {
	return &JWKSClient{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
		now:  time.Now,
		keys: map[string]*rsa.PublicKey{},
	}
}

// GetKey returns the public key for kid, refreshing the cache on a miss.
func (c *JWKSClient) GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, stale := c.lookup(kid)
	if key != nil {
		return key, nil
	}
	if !stale {
		return nil, fmt.Errorf("kid %q not in JWKS", kid)
	}

	keys, err := c.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh JWKS: %w", err)
	}
	c.mu.Lock()
	c.keys = keys
	c.fetched = c.now()
	c.mu.Unlock()

	if key, ok := keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("kid %q not in JWKS", kid)
}

func (c *JWKSClient) lookup(kid string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[kid], c.fetched.IsZero() || c.now().Sub(c.fetched) > refreshInterval
}

func (c *JWKSClient) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		if pub, err := k.rsaKey(); err == nil {
			keys[k.Kid] = pub
		}
	}
	return keys, nil
}

func (k jwk) rsaKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 3 || exp.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}
