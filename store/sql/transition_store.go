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

type TransitionFilter struct {
	Method  core.AuthMethod
	Trigger core.Trigger
	From    *time.Time
	Page    int
	PerPage int
}

type TransitionPage struct {
	Items   []core.TransitionEvent
	Total   int
	Page    int
	PerPage int
	HasNext bool
}

// TransitionStore is an audit log of reconciler transitions. It is registered
// on the reconciler as a transition observer.
type TransitionStore struct {
	db   *bun.DB
	repo repository.Repository[*transitionRecord]
}

func NewTransitionStore(db *bun.DB) (*TransitionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*transitionRecord](db, transitionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid transition repository wiring: %w", err)
		}
	}
	return &TransitionStore{db: db, repo: repo}, nil
}

func (s *TransitionStore) ObserveTransition(ctx context.Context, event core.TransitionEvent) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: transition store is not configured")
	}
	if err := event.Current.Validate(); err != nil {
		return err
	}
	record := newTransitionRecord(event)
	record.ID = uuid.NewString()
	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *TransitionStore) List(ctx context.Context, filter TransitionFilter) (TransitionPage, error) {
	if s == nil || s.repo == nil {
		return TransitionPage{}, fmt.Errorf("sqlstore: transition store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("occurred_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if method := strings.TrimSpace(string(filter.Method)); method != "" {
		selectors = append(selectors, repository.SelectBy("current_method", "=", method))
	}
	if trigger := strings.TrimSpace(string(filter.Trigger)); trigger != "" {
		selectors = append(selectors, repository.SelectBy("trigger_name", "=", trigger))
	}
	if filter.From != nil {
		selectors = append(selectors, repository.SelectByTimetz("occurred_at", ">=", filter.From.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return TransitionPage{}, err
	}
	items := make([]core.TransitionEvent, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return TransitionPage{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		HasNext: offset+len(items) < total,
	}, nil
}
