package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-unifiedauth/core"
	"github.com/uptrace/bun"
)

type userRecord struct {
	bun.BaseModel `bun:"table:unifiedauth_users,alias:uu"`

	ID            string    `bun:"id,pk"`
	Email         string    `bun:"email,notnull"`
	Name          string    `bun:"name,notnull"`
	WalletAddress string    `bun:"wallet_address,notnull"`
	WalletLookup  string    `bun:"wallet_lookup,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type transitionRecord struct {
	bun.BaseModel `bun:"table:unifiedauth_transitions,alias:ut"`

	ID             string         `bun:"id,pk"`
	PreviousMethod string         `bun:"previous_method,notnull"`
	CurrentMethod  string         `bun:"current_method,notnull"`
	Trigger        string         `bun:"trigger_name,notnull"`
	Metadata       map[string]any `bun:"metadata,type:jsonb,notnull"`
	OccurredAt     time.Time      `bun:"occurred_at,notnull"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newUserRecord(in core.CreateUserInput, now time.Time) *userRecord {
	return &userRecord{
		Email:         in.Email,
		Name:          in.Name,
		WalletAddress: in.WalletAddress,
		WalletLookup:  core.WalletLookupKey(in.WalletAddress),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (r *userRecord) toDomain() core.User {
	if r == nil {
		return core.User{}
	}
	return core.User{
		ID:            r.ID,
		Email:         r.Email,
		Name:          r.Name,
		WalletAddress: r.WalletAddress,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func newTransitionRecord(event core.TransitionEvent) *transitionRecord {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return &transitionRecord{
		PreviousMethod: event.Previous.String(),
		CurrentMethod:  event.Current.String(),
		Trigger:        strings.TrimSpace(string(event.Trigger)),
		Metadata:       copyAnyMap(event.Metadata),
		OccurredAt:     occurredAt.UTC(),
		CreatedAt:      time.Now().UTC(),
	}
}

func (r *transitionRecord) toDomain() core.TransitionEvent {
	if r == nil {
		return core.TransitionEvent{}
	}
	return core.TransitionEvent{
		Previous:   core.AuthMethod(r.PreviousMethod),
		Current:    core.AuthMethod(r.CurrentMethod),
		Trigger:    core.Trigger(r.Trigger),
		OccurredAt: r.OccurredAt.UTC(),
		Metadata:   copyAnyMap(r.Metadata),
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
