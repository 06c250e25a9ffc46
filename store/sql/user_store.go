package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-unifiedauth/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UserStore struct {
	db   *bun.DB
	repo repository.Repository[*userRecord]
	now  func() time.Time
}

func NewUserStore(db *bun.DB) (*UserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*userRecord](db, userHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid user repository wiring: %w", err)
		}
	}
	return &UserStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *UserStore) Create(ctx context.Context, in core.CreateUserInput) (core.User, error) {
	if s == nil || s.repo == nil {
		return core.User{}, fmt.Errorf("sqlstore: user store is not configured")
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.User{}, core.NewBadInputError(err.Error())
	}

	record := newUserRecord(in, s.now())
	record.ID = uuid.NewString()
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			key := in.Email
			if key == "" {
				key = in.WalletAddress
			}
			return core.User{}, core.NewUserExistsError(key)
		}
		return core.User{}, err
	}
	return created.toDomain(), nil
}

func (s *UserStore) Get(ctx context.Context, id string) (core.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.User{}, core.NewUserNotFoundError(id)
	}
	return s.findOne(ctx, id, repository.SelectBy("id", "=", id))
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (core.User, error) {
	key := strings.TrimSpace(strings.ToLower(email))
	if key == "" {
		return core.User{}, core.NewUserNotFoundError(email)
	}
	return s.findOne(ctx, email, repository.SelectBy("email", "=", key))
}

func (s *UserStore) FindByWalletAddress(ctx context.Context, address string) (core.User, error) {
	key := core.WalletLookupKey(address)
	if key == "" {
		return core.User{}, core.NewUserNotFoundError(address)
	}
	return s.findOne(ctx, address, repository.SelectBy("wallet_lookup", "=", key))
}

func (s *UserStore) findOne(ctx context.Context, label string, criteria repository.SelectCriteria) (core.User, error) {
	if s == nil || s.repo == nil {
		return core.User{}, fmt.Errorf("sqlstore: user store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		criteria,
		repository.OrderBy("created_at ASC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.User{}, err
	}
	if len(records) == 0 {
		return core.User{}, core.NewUserNotFoundError(label)
	}
	return records[0].toDomain(), nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
