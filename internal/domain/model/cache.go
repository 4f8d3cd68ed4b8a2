package model

import (
	"encoding/json"
	"errors"
	"regexp"
	"time"
)

// CacheCategory scopes cache keys for bulk invalidation.
type CacheCategory string

const (
	// CacheCategoryBilling holds responses cached from the billing provider.
	CacheCategoryBilling CacheCategory = "billing"
	// CacheCategoryJobResults holds derived job result lookups.
	CacheCategoryJobResults CacheCategory = "job_results"
)

var cacheCategoryRe = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Valid reports whether the category is a well-formed identifier.
func (c CacheCategory) Valid() bool {
	return cacheCategoryRe.MatchString(string(c))
}

// CacheEntry is a category-scoped key/value pair with an optional expiry.
type CacheEntry struct {
	Key       string          `json:"key"                  db:"key"`
	Category  CacheCategory   `json:"category"             db:"category"`
	Value     json.RawMessage `json:"value"                db:"value"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
}

// CacheSetRequest writes or overwrites a cache entry. A TTL <= 0 means no expiry.
type CacheSetRequest struct {
	Key      string
	Category CacheCategory
	Value    json.RawMessage
	TTL      time.Duration
}

// Validate validates the CacheSetRequest fields.
func (r *CacheSetRequest) Validate() error {
	if r.Key == "" {
		return errors.New("cache key is required")
	}
	if !r.Category.Valid() {
		return errors.New("cache category must match [a-z0-9_]{1,64}")
	}
	if !json.Valid(r.Value) {
		return errors.New("cache value must be valid JSON")
	}
	return nil
}
