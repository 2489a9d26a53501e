// Package storage issues time-limited read URLs for stored assets.
package storage

import (
	"context"
	"errors"
)

// URLSigner signs storage paths, singly or as one batch.
type URLSigner interface {
	Sign(ctx context.Context, path string) (string, error)
	SignBatch(ctx context.Context, paths []string) (map[string]string, error)
}

// ErrInvalidMediaToken is returned when a signed media URL does not verify.
var ErrInvalidMediaToken = errors.New("invalid media token")

// dedupe drops empty and repeated paths, keeping order.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
