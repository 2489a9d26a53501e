package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"atelier/internal/observability"

	"github.com/golang-jwt/jwt/v5"
)

// LocalSigner issues URLs to the server's own /media route. Each URL carries
// an HS256 token whose subject is the storage path and whose expiry is the
// URL lifetime.
type LocalSigner struct {
	base   *url.URL
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLocalSigner creates a signer for URLs under publicBaseURL.
func NewLocalSigner(publicBaseURL, secret string, ttl time.Duration) (*LocalSigner, error) {
	base, err := url.Parse(strings.TrimSuffix(publicBaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid PUBLIC_BASE_URL: %w", err)
	}
	if secret == "" {
		return nil, fmt.Errorf("media signing secret is required")
	}
	return &LocalSigner{
		base:   base,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (s *LocalSigner) Sign(_ context.Context, path string) (string, error) {
	now := s.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   path,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", path, err)
	}

	u := s.base.JoinPath("media", path)
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func (s *LocalSigner) SignBatch(ctx context.Context, paths []string) (map[string]string, error) {
	paths = dedupe(paths)
	observability.SignBatchSize.Observe(float64(len(paths)))

	urls := make(map[string]string, len(paths))
	for _, p := range paths {
		u, err := s.Sign(ctx, p)
		if err != nil {
			return nil, err
		}
		urls[p] = u
	}
	return urls, nil
}

// Verify checks that token was issued by this signer for path and has not expired.
func (s *LocalSigner) Verify(path, token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidMediaToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != path {
		return ErrInvalidMediaToken
	}
	return nil
}
