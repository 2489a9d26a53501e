package auth

import (
	"context"
	"testing"
	"time"

	"atelier/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "atelier-api"
	testAudience = "atelier-client"
)

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, 401, models.StatusOf(err))
}

func sign(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTResolver_Verify(t *testing.T) {
	resolver := NewJWTResolver(testSecret, testIssuer, testAudience, nil)
	ctx := context.Background()
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	valid := jwt.RegisteredClaims{Issuer: testIssuer, Audience: jwt.ClaimStrings{testAudience}, Subject: "12", ExpiresAt: exp}

	t.Run("issued token", func(t *testing.T) {
		token, err := resolver.Issue(12, time.Hour)
		require.NoError(t, err)
		id, err := resolver.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, uint(12), id)
	})

	t.Run("hand-built token", func(t *testing.T) {
		id, err := resolver.Verify(ctx, sign(t, valid, jwt.SigningMethodHS256, []byte(testSecret)))
		require.NoError(t, err)
		assert.Equal(t, uint(12), id)
	})

	cases := map[string]string{
		"garbage":        "not-a-jwt",
		"wrong secret":   sign(t, valid, jwt.SigningMethodHS256, []byte("other")),
		"wrong alg":      sign(t, valid, jwt.SigningMethodHS512, []byte(testSecret)),
		"wrong issuer":   sign(t, jwt.RegisteredClaims{Issuer: "x", Audience: valid.Audience, Subject: "12", ExpiresAt: exp}, jwt.SigningMethodHS256, []byte(testSecret)),
		"wrong audience": sign(t, jwt.RegisteredClaims{Issuer: testIssuer, Audience: jwt.ClaimStrings{"x"}, Subject: "12", ExpiresAt: exp}, jwt.SigningMethodHS256, []byte(testSecret)),
		"no expiry":      sign(t, jwt.RegisteredClaims{Issuer: testIssuer, Audience: valid.Audience, Subject: "12"}, jwt.SigningMethodHS256, []byte(testSecret)),
		"expired":        sign(t, jwt.RegisteredClaims{Issuer: testIssuer, Audience: valid.Audience, Subject: "12", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}, jwt.SigningMethodHS256, []byte(testSecret)),
		"bad subject":    sign(t, jwt.RegisteredClaims{Issuer: testIssuer, Audience: valid.Audience, Subject: "alice", ExpiresAt: exp}, jwt.SigningMethodHS256, []byte(testSecret)),
		"zero subject":   sign(t, jwt.RegisteredClaims{Issuer: testIssuer, Audience: valid.Audience, Subject: "0", ExpiresAt: exp}, jwt.SigningMethodHS256, []byte(testSecret)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := resolver.Verify(ctx, token)
			assertUnauthorized(t, err)
		})
	}
}

func TestJWTResolver_Revocation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	resolver := NewJWTResolver(testSecret, testIssuer, testAudience, rdb)
	ctx := context.Background()

	token, err := resolver.Issue(5, time.Hour)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	_, err = resolver.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, resolver.Revoke(ctx, claims.ID, time.Hour))
	_, err = resolver.Verify(ctx, token)
	assertUnauthorized(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = resolver.Verify(ctx, token)
	require.NoError(t, err)
}

func TestJWTResolver_RedisDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	resolver := NewJWTResolver(testSecret, testIssuer, testAudience, rdb)

	token, err := resolver.Issue(5, time.Hour)
	require.NoError(t, err)
	mr.Close()

	id, err := resolver.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(5), id)
}
