package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidAuthMethod = errors.New("core: invalid auth method")
	ErrInvalidTrigger    = errors.New("core: invalid transition trigger")
)

type AuthMethod string

const (
	AuthMethodNone        AuthMethod = "none"
	AuthMethodCredentials AuthMethod = "credentials"
	AuthMethodWallet      AuthMethod = "wallet"
)

func (m AuthMethod) String() string {
	if m == "" {
		return string(AuthMethodNone)
	}
	return string(m)
}

func (m AuthMethod) Validate() error {
	switch m {
	case AuthMethodNone, AuthMethodCredentials, AuthMethodWallet:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAuthMethod, string(m))
	}
}

func ParseAuthMethod(raw string) (AuthMethod, error) {
	method := AuthMethod(strings.TrimSpace(strings.ToLower(raw)))
	if method == "" {
		return AuthMethodNone, nil
	}
	if err := method.Validate(); err != nil {
		return AuthMethodNone, err
	}
	return method, nil
}

// Trigger names the evaluation that produced a transition.
type Trigger string

const (
	TriggerInitialize        Trigger = "initialize"
	TriggerCredentialsChange Trigger = "credentials_change"
	TriggerWalletChange      Trigger = "wallet_change"
	TriggerReevaluate        Trigger = "reevaluate"
	TriggerConnectWallet     Trigger = "connect_wallet"
	TriggerLogout            Trigger = "logout"
)

func ParseTrigger(raw string) (Trigger, error) {
	trigger := Trigger(strings.TrimSpace(strings.ToLower(raw)))
	switch trigger {
	case TriggerInitialize, TriggerCredentialsChange, TriggerWalletChange,
		TriggerReevaluate, TriggerConnectWallet, TriggerLogout:
		return trigger, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTrigger, raw)
	}
}

type Wallet struct {
	Address string
}

type SessionUser struct {
	ID    string
	Name  string
	Email string
}

type CredentialsSession struct {
	Authenticated bool
	User          *SessionUser
}

// NormalizedIdentity is the source-agnostic projection of the current user.
// Exactly one of Email or Address is set.
type NormalizedIdentity struct {
	ID          string
	DisplayName string
	Email       *string
	Address     *string
}

type ReconcilerState struct {
	Method      AuthMethod
	Initialized bool
}

func (s ReconcilerState) IsAuthenticated() bool {
	return s.Method != "" && s.Method != AuthMethodNone
}

type ReadModel struct {
	IsAuthenticated bool
	AuthMethod      AuthMethod
	Identity        *NormalizedIdentity
	RawWallet       *Wallet
	Initialized     bool
}

type TransitionEvent struct {
	Previous   AuthMethod
	Current    AuthMethod
	Trigger    Trigger
	OccurredAt time.Time
	Metadata   map[string]any
}

func (e TransitionEvent) Changed() bool {
	return e.Previous != e.Current
}

type User struct {
	ID            string
	Email         string
	Name          string
	WalletAddress string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u User) SessionUser() *SessionUser {
	return &SessionUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}

type CreateUserInput struct {
	Email         string
	Name          string
	WalletAddress string
}

func (in CreateUserInput) Normalize() CreateUserInput {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.WalletAddress = NormalizeWalletAddress(in.WalletAddress)
	return in
}

func (in CreateUserInput) Validate() error {
	if in.Email == "" && in.WalletAddress == "" {
		return fmt.Errorf("core: user email or wallet address is required")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return fmt.Errorf("core: invalid user email %q", in.Email)
	}
	return nil
}

// NormalizeWalletAddress trims the address and lowercases the 0x prefix only,
// keeping checksum casing of the hex body intact.
func NormalizeWalletAddress(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, "0X") {
		address = "0x" + address[2:]
	}
	return address
}
