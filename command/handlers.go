package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-unifiedauth/core"
)

// IdentityService is the slice of the reconciler that commands mutate.
type IdentityService interface {
	ConnectWallet(ctx context.Context) bool
	Logout(ctx context.Context)
	Snapshot() core.ReadModel
}

// AccountService registers users and opens credentials sessions.
type AccountService interface {
	Register(ctx context.Context, in core.CreateUserInput) (core.User, error)
	SignIn(ctx context.Context, email string) (core.User, error)
}

type ConnectWalletCommand struct {
	service IdentityService
}

func NewConnectWalletCommand(service IdentityService) *ConnectWalletCommand {
	return &ConnectWalletCommand{service: service}
}

// Execute never fails on a declined or unavailable wallet; the outcome is
// reported through the stored ConnectWalletResult.
func (c *ConnectWalletCommand) Execute(ctx context.Context, _ ConnectWalletMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: identity service is required")
	}
	connected := c.service.ConnectWallet(ctx)
	storeResult(ctx, ConnectWalletResult{
		Connected: connected,
		State:     c.service.Snapshot(),
	})
	return nil
}

type LogoutCommand struct {
	service IdentityService
}

func NewLogoutCommand(service IdentityService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: identity service is required")
	}
	c.service.Logout(ctx)
	storeResult(ctx, c.service.Snapshot())
	return nil
}

type RegisterCommand struct {
	service AccountService
}

func NewRegisterCommand(service AccountService) *RegisterCommand {
	return &RegisterCommand{service: service}
}

func (c *RegisterCommand) Execute(ctx context.Context, msg RegisterMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	user, err := c.service.Register(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, user)
	return nil
}

type SignInCommand struct {
	service AccountService
}

func NewSignInCommand(service AccountService) *SignInCommand {
	return &SignInCommand{service: service}
}

func (c *SignInCommand) Execute(ctx context.Context, msg SignInMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	user, err := c.service.SignIn(ctx, msg.Email)
	if err != nil {
		return err
	}
	storeResult(ctx, user)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
