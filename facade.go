package unifiedauth

import (
	"fmt"

	authcommand "github.com/goliatone/go-unifiedauth/command"
	"github.com/goliatone/go-unifiedauth/core"
	authquery "github.com/goliatone/go-unifiedauth/query"
)

type Commands struct {
	ConnectWallet *authcommand.ConnectWalletCommand
	Logout        *authcommand.LogoutCommand
	Register      *authcommand.RegisterCommand
	SignIn        *authcommand.SignInCommand
}

type Queries struct {
	CurrentIdentity      *authquery.CurrentIdentityQuery
	RunDiagnostics       *authquery.RunDiagnosticsQuery
	TestWalletConnection *authquery.TestWalletConnectionQuery
	FindUser             *authquery.FindUserQuery
}

// Facade groups the command and query handlers around one reconciler.
type Facade struct {
	reconciler *core.Reconciler
	commands   Commands
	queries    Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	accounts    authcommand.AccountService
	diagnostics authquery.DiagnosticsRunner
	users       core.UserRepository
}

// WithAccountService enables the Register and SignIn commands.
func WithAccountService(service authcommand.AccountService) FacadeOption {
	return func(options *facadeOptions) {
		options.accounts = service
	}
}

// WithDiagnostics enables the diagnostic probe queries.
func WithDiagnostics(runner authquery.DiagnosticsRunner) FacadeOption {
	return func(options *facadeOptions) {
		options.diagnostics = runner
	}
}

func WithUserRepository(users core.UserRepository) FacadeOption {
	return func(options *facadeOptions) {
		options.users = users
	}
}

// NewFacade wires handlers for every operation. Handlers whose dependency was
// not supplied return an internal error when executed.
func NewFacade(reconciler *core.Reconciler, opts ...FacadeOption) (*Facade, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("unifiedauth: reconciler is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Facade{
		reconciler: reconciler,
		commands: Commands{
			ConnectWallet: authcommand.NewConnectWalletCommand(reconciler),
			Logout:        authcommand.NewLogoutCommand(reconciler),
			Register:      authcommand.NewRegisterCommand(cfg.accounts),
			SignIn:        authcommand.NewSignInCommand(cfg.accounts),
		},
		queries: Queries{
			CurrentIdentity:      authquery.NewCurrentIdentityQuery(reconciler),
			RunDiagnostics:       authquery.NewRunDiagnosticsQuery(cfg.diagnostics),
			TestWalletConnection: authquery.NewTestWalletConnectionQuery(cfg.diagnostics),
			FindUser:             authquery.NewFindUserQuery(cfg.users),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Reconciler() *core.Reconciler {
	if f == nil {
		return nil
	}
	return f.reconciler
}
