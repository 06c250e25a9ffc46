package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserRepository is a process-local UserRepository. Nothing is persisted.
type MemoryUserRepository struct {
	mu       sync.RWMutex
	byID     map[string]User
	byEmail  map[string]string
	byWallet map[string]string
	now      func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:     map[string]User{},
		byEmail:  map[string]string{},
		byWallet: map[string]string{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, in CreateUserInput) (User, error) {
	if r == nil {
		return User{}, NewBadInputError("core: memory user repository is nil")
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return User{}, NewBadInputError(err.Error())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if in.Email != "" {
		if _, exists := r.byEmail[in.Email]; exists {
			return User{}, NewUserExistsError(in.Email)
		}
	}
	walletKey := walletLookupKey(in.WalletAddress)
	if walletKey != "" {
		if _, exists := r.byWallet[walletKey]; exists {
			return User{}, NewUserExistsError(in.WalletAddress)
		}
	}

	now := r.now()
	user := User{
		ID:            uuid.NewString(),
		Email:         in.Email,
		Name:          in.Name,
		WalletAddress: in.WalletAddress,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.byID[user.ID] = user
	if user.Email != "" {
		r.byEmail[user.Email] = user.ID
	}
	if walletKey != "" {
		r.byWallet[walletKey] = user.ID
	}
	return user, nil
}

func (r *MemoryUserRepository) Get(_ context.Context, id string) (User, error) {
	if r == nil {
		return User{}, NewUserNotFoundError(id)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return User{}, NewUserNotFoundError(id)
	}
	return user, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (User, error) {
	key := strings.TrimSpace(strings.ToLower(email))
	if r == nil || key == "" {
		return User{}, NewUserNotFoundError(email)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[key]
	if !ok {
		return User{}, NewUserNotFoundError(email)
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) FindByWalletAddress(_ context.Context, address string) (User, error) {
	key := walletLookupKey(address)
	if r == nil || key == "" {
		return User{}, NewUserNotFoundError(address)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byWallet[key]
	if !ok {
		return User{}, NewUserNotFoundError(address)
	}
	return r.byID[id], nil
}

// WalletLookupKey is the case-insensitive key used to match wallet addresses.
func WalletLookupKey(address string) string {
	return walletLookupKey(address)
}

func walletLookupKey(address string) string {
	return strings.ToLower(NormalizeWalletAddress(address))
}

var _ UserRepository = (*MemoryUserRepository)(nil)
