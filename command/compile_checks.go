package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-unifiedauth/core"
	"github.com/goliatone/go-unifiedauth/sources"
)

var (
	_ gocmd.Commander[ConnectWalletMessage] = (*ConnectWalletCommand)(nil)
	_ gocmd.Commander[LogoutMessage]        = (*LogoutCommand)(nil)
	_ gocmd.Commander[RegisterMessage]      = (*RegisterCommand)(nil)
	_ gocmd.Commander[SignInMessage]        = (*SignInCommand)(nil)

	_ IdentityService = (*core.Reconciler)(nil)
	_ AccountService  = (*sources.SessionSource)(nil)
)
