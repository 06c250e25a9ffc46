package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-unifiedauth/core"
)

const userCacheKeyPrefix = "go-unifiedauth::user::v1"

// CachedUserStore is a read-through cache over a UserRepository. Users are
// immutable once created, so entries are never invalidated; lookup misses are
// not cached.
type CachedUserStore struct {
	base  core.UserRepository
	cache repositorycache.CacheService
}

func NewCachedUserStore(base core.UserRepository, cacheService repositorycache.CacheService) (*CachedUserStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base user repository is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: user cache service is required")
	}
	return &CachedUserStore{base: base, cache: cacheService}, nil
}

// UserCacheKey returns go-unifiedauth::user::v1::<kind>::<value> with the
// value URL-path escaped.
func UserCacheKey(kind string, value string) string {
	return strings.Join([]string{
		userCacheKeyPrefix,
		strings.TrimSpace(strings.ToLower(kind)),
		url.PathEscape(value),
	}, "::")
}

func (s *CachedUserStore) Create(ctx context.Context, in core.CreateUserInput) (core.User, error) {
	if s == nil || s.base == nil {
		return core.User{}, fmt.Errorf("sqlstore: cached user store is not configured")
	}
	created, err := s.base.Create(ctx, in)
	if err != nil {
		return core.User{}, err
	}
	// Drop any stale entry left by an earlier lookup of the same keys.
	for _, key := range userCacheKeys(created) {
		if err := s.cache.Delete(ctx, key); err != nil {
			return core.User{}, err
		}
	}
	return created, nil
}

func (s *CachedUserStore) Get(ctx context.Context, id string) (core.User, error) {
	id = strings.TrimSpace(id)
	return s.lookup(ctx, UserCacheKey("id", id), func(ctx context.Context) (core.User, error) {
		return s.base.Get(ctx, id)
	})
}

func (s *CachedUserStore) FindByEmail(ctx context.Context, email string) (core.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	return s.lookup(ctx, UserCacheKey("email", email), func(ctx context.Context) (core.User, error) {
		return s.base.FindByEmail(ctx, email)
	})
}

func (s *CachedUserStore) FindByWalletAddress(ctx context.Context, address string) (core.User, error) {
	key := core.WalletLookupKey(address)
	return s.lookup(ctx, UserCacheKey("wallet", key), func(ctx context.Context) (core.User, error) {
		return s.base.FindByWalletAddress(ctx, address)
	})
}

func (s *CachedUserStore) lookup(
	ctx context.Context,
	key string,
	fetch func(context.Context) (core.User, error),
) (core.User, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.User{}, fmt.Errorf("sqlstore: cached user store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, key, fetch)
}

func userCacheKeys(user core.User) []string {
	keys := []string{UserCacheKey("id", user.ID)}
	if user.Email != "" {
		keys = append(keys, UserCacheKey("email", user.Email))
	}
	if wallet := core.WalletLookupKey(user.WalletAddress); wallet != "" {
		keys = append(keys, UserCacheKey("wallet", wallet))
	}
	return keys
}
