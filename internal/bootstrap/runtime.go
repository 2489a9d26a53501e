// Package bootstrap builds the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/auth"
	"atelier/internal/cache"
	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/middleware"
	"atelier/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the connected dependencies of the API process.
type Runtime struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Signer   storage.URLSigner
	Media    *storage.LocalSigner
	Resolver *auth.JWTResolver
}

// InitRuntime connects to the database and, when configured, Redis, then
// builds the URL signer and the bearer token resolver.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}

	signer, media, err := NewSigner(ctx, cfg, rdb)
	if err != nil {
		return nil, err
	}

	// A nil *redis.Client must not become a non-nil Cmdable.
	var revocations redis.Cmdable
	if rdb != nil {
		revocations = rdb
	}

	return &Runtime{
		DB:       db,
		Redis:    rdb,
		Signer:   signer,
		Media:    media,
		Resolver: auth.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, revocations),
	}, nil
}

// connectRedis returns nil when REDIS_URL is unset. Outside production an
// unreachable Redis is logged and the process runs without it.
func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		middleware.Logger.Warn("REDIS_URL not set; signed URL cache and token revocation disabled")
		return nil, nil
	}
	rdb, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		middleware.Logger.Warn("redis unavailable; continuing without it", "error", err)
		return nil, nil
	}
	return rdb, nil
}

// NewSigner builds the ObjectURLSigner for the configured storage backend,
// wrapped in the Redis cache when enabled. The local signer is also returned
// so the server can verify the URLs it issues; it is nil for S3.
func NewSigner(ctx context.Context, cfg *config.Config, rdb *redis.Client) (storage.URLSigner, *storage.LocalSigner, error) {
	var (
		inner storage.URLSigner
		local *storage.LocalSigner
	)

	switch cfg.StorageBackend {
	case "s3":
		s3Signer, err := storage.NewS3Signer(ctx, storage.S3Config{
			Region:         cfg.S3Region,
			Bucket:         cfg.S3Bucket,
			Endpoint:       cfg.S3Endpoint,
			ForcePathStyle: cfg.S3ForcePathStyle,
			TTL:            cfg.SignedURLTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3 signer: %w", err)
		}
		inner = s3Signer
	case "local":
		signer, err := storage.NewLocalSigner(cfg.PublicBaseURL, cfg.MediaSigningSecret, cfg.SignedURLTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("local signer: %w", err)
		}
		inner, local = signer, signer
	default:
		return nil, nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.SignedURLCache && rdb != nil {
		return storage.NewCachedSigner(inner, rdb, cfg.SignedURLTTL), local, nil
	}
	return inner, local, nil
}

// Close releases the database and Redis connections.
func (r *Runtime) Close() {
	if sqlDB, err := r.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
}

// shutdownTimeout bounds graceful shutdown of the commands.
const shutdownTimeout = 10 * time.Second

// ShutdownContext returns a context for graceful shutdown.
func ShutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), shutdownTimeout)
}
