// Package identity turns a verified bearer token into the tenant-scoping
// owner id used by every store call.
package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jun/gophtodo/internal/apperr"
)

// OwnerResolver resolves a raw bearer token (without the "Bearer " prefix)
// into a stable owner id.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, token string) (string, error)
}

type keySource func(ctx context.Context, token *jwt.Token) (any, error)

// TokenResolver verifies JWTs and returns their subject claim.
type TokenResolver struct {
	keys    keySource
	options []jwt.ParserOption
}

// NewHMACResolver verifies tokens signed with a shared HMAC secret.
func NewHMACResolver(secret []byte) *TokenResolver {
	return &TokenResolver{
		keys: func(_ context.Context, token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		options: []jwt.ParserOption{
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		},
	}
}

// NewJWKSResolver verifies RS256 tokens against keys published at a JWKS
// endpoint (Auth0, Cognito). Empty issuer or audience disables that check.
func NewJWKSResolver(jwks *JWKSClient, issuer, audience string) *TokenResolver {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &TokenResolver{
		keys: func(ctx context.Context, token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			kid, ok := token.Header["kid"].(string)
			if !ok {
				return nil, fmt.Errorf("kid header not found")
			}
			return jwks.GetKey(ctx, kid)
		},
		options: opts,
	}
}

// ResolveOwner returns the token's "sub" claim. Every failure wraps
// apperr.ErrUnauthorized.
func (r *TokenResolver) ResolveOwner(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty token", apperr.ErrUnauthorized)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return r.keys(ctx, t)
	}, r.options...)
	if err != nil {
		return "", fmt.Errorf("%w: invalid token: %v", apperr.ErrUnauthorized, err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: sub claim not found", apperr.ErrUnauthorized)
	}
	return sub, nil
}
