// Package auth resolves bearer tokens to viewer ids.
package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"atelier/internal/cache"
	"atelier/internal/middleware"
	"atelier/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// JWTResolver verifies HS256 bearer tokens issued by the identity provider.
// Tokens must carry the configured issuer and audience and a numeric subject.
// A token whose jti is on the Redis blacklist is rejected.
type JWTResolver struct {
	secret   []byte
	issuer   string
	audience string
	rdb      redis.Cmdable
}

// NewJWTResolver creates a resolver. rdb may be nil, which disables the
// revocation check.
func NewJWTResolver(secret, issuer, audience string, rdb redis.Cmdable) *JWTResolver {
	return &JWTResolver{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		rdb:      rdb,
	}
}

// Verify returns the viewer id carried by token.
func (r *JWTResolver) Verify(ctx context.Context, token string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithAudience(r.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return 0, models.NewUnauthorizedError("Invalid or expired token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, models.NewUnauthorizedError("Invalid user ID in token")
	}

	if claims.ID != "" && r.rdb != nil {
		revoked, err := r.rdb.Exists(ctx, cache.BlacklistKey(claims.ID)).Result()
		switch {
		case err != nil && !errors.Is(err, redis.Nil):
			middleware.Logger.WarnContext(ctx, "token revocation check failed", "error", err)
		case revoked > 0:
			return 0, models.NewUnauthorizedError("Token has been revoked")
		}
	}

	return uint(userID), nil
}

// Issue signs a token for userID valid for ttl. Used by the seeder and tests;
// production tokens come from the identity provider.
func (r *JWTResolver) Issue(userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    r.issuer,
		Audience:  jwt.ClaimStrings{r.audience},
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString(r.secret)
}

// Revoke blacklists a token id until ttl elapses.
func (r *JWTResolver) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if r.rdb == nil {
		return errors.New("token revocation requires redis")
	}
	return r.rdb.Set(ctx, cache.BlacklistKey(jti), "1", ttl).Err()
}
