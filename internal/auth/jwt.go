package auth

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Audience carried by access tokens issued to signed-in users
const Audience = "authenticated"

// Claims are the access token claims the service relies on
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates access tokens locally, either with the project's
// shared HS256 secret or with the provider's published JWKS.
type JWTVerifier struct {
	keyFunc jwt.Keyfunc
	methods []string
}

// NewHMACVerifier verifies tokens signed with the project JWT secret
func NewHMACVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		keyFunc: func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		methods: []string{jwt.SigningMethodHS256.Alg()},
	}
}

// NewJWKSVerifier verifies tokens against the keys published at jwksURL.
// Keys are refreshed in the background until ctx is cancelled.
func NewJWKSVerifier(ctx context.Context, jwksURL string) (*JWTVerifier, error) {
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS from %s: %w", jwksURL, err)
	}
	return &JWTVerifier{
		keyFunc: jwks.Keyfunc,
		methods: []string{"RS256", "ES256"},
	}, nil
}

// Verify implements Verifier
func (v *JWTVerifier) Verify(_ context.Context, token string) (*User, error) {
	claims, err := v.ParseClaims(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &User{ID: claims.Subject, Email: claims.Email}, nil
}

// ParseClaims parses and validates a token, returning its claims
func (v *JWTVerifier) ParseClaims(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, v.keyFunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if c.Subject == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}
	return c, nil
}
