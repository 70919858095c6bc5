// Package cache fronts repository reads with a bounded LRU, grounded on the
// teacher's go/r3dr/shortener.go use of hashicorp/golang-lru/v2. The auth
// path (repeated reconnects validating the same bearer token) and the
// friend-list path (repeated invite checks) are the two read-heavy,
// write-rarely collaborators worth caching.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Lukaa21/Zing-sub000/internal/repository"
)

type entry[T any] struct {
	value   T
	expires time.Time
}

// CachedAuthValidator wraps a repository.AuthValidator with a bounded,
// time-expiring LRU of recently-validated tokens.
type CachedAuthValidator struct {
	inner repository.AuthValidator
	ttl   time.Duration
	cache *lru.Cache[string, entry[repository.AuthenticatedUser]]
}

func NewCachedAuthValidator(inner repository.AuthValidator, size int, ttl time.Duration) *CachedAuthValidator {
	c, _ := lru.New[string, entry[repository.AuthenticatedUser]](size)
	return &CachedAuthValidator{inner: inner, ttl: ttl, cache: c}
}

func (c *CachedAuthValidator) ValidateToken(ctx context.Context, token string) (repository.AuthenticatedUser, error) {
	if e, ok := c.cache.Get(token); ok && time.Now().Before(e.expires) {
		return e.value, nil
	}
	u, err := c.inner.ValidateToken(ctx, token)
	if err != nil {
		return repository.AuthenticatedUser{}, err
	}
	c.cache.Add(token, entry[repository.AuthenticatedUser]{value: u, expires: time.Now().Add(c.ttl)})
	return u, nil
}

// CachedFriendReader wraps a repository.FriendReader with a bounded,
// time-expiring LRU keyed by the unordered pair of player ids.
type CachedFriendReader struct {
	inner repository.FriendReader
	ttl   time.Duration
	cache *lru.Cache[string, entry[bool]]
}

func NewCachedFriendReader(inner repository.FriendReader, size int, ttl time.Duration) *CachedFriendReader {
	c, _ := lru.New[string, entry[bool]](size)
	return &CachedFriendReader{inner: inner, ttl: ttl, cache: c}
}

func (c *CachedFriendReader) AreFriends(ctx context.Context, a, b string) (bool, error) {
	key := pairKey(a, b)
	if e, ok := c.cache.Get(key); ok && time.Now().Before(e.expires) {
		return e.value, nil
	}
	ok, err := c.inner.AreFriends(ctx, a, b)
	if err != nil {
		return false, err
	}
	c.cache.Add(key, entry[bool]{value: ok, expires: time.Now().Add(c.ttl)})
	return ok, nil
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}
