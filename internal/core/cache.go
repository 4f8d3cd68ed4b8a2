// Package core defines the ports between the jobcore services and their storage adapters.
package core

import (
	"context"
	"time"

	"github.com/creatorhub/jobcore/internal/domain/model"
)

// CacheTier sits in front of the Postgres cache table. It may lose entries at any
// time but must never hold a value Postgres has replaced or invalidated.
type CacheTier interface {
	// Set writes value under (category, key). ttl <= 0 means no expiry.
	Set(ctx context.Context, category model.CacheCategory, key string, value []byte, ttl time.Duration) error
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, category model.CacheCategory, key string) ([]byte, error)
	// Delete drops one key. A missing key is not an error.
	Delete(ctx context.Context, category model.CacheCategory, key string) error
	// DeletePattern drops keys of category matching a * / ? glob and reports how many went.
	DeletePattern(ctx context.Context, category model.CacheCategory, pattern string) (int64, error)
	Health(ctx context.Context) error
}
