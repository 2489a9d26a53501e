package cache

import "fmt"

const (
	SignedURLKeyPrefix = "signed_url:%s"
	BlacklistKeyPrefix = "blacklist:%s"
)

// SignedURLKey is the cache key of the signed URL for a storage path.
func SignedURLKey(path string) string {
	return fmt.Sprintf(SignedURLKeyPrefix, path)
}

// BlacklistKey marks a revoked token by its jti.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}
