package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-unifiedauth/core"
	"github.com/goliatone/go-unifiedauth/diagnostics"
)

var (
	_ gocmd.Querier[CurrentIdentityMessage, core.ReadModel]                        = (*CurrentIdentityQuery)(nil)
	_ gocmd.Querier[RunDiagnosticsMessage, diagnostics.Report]                     = (*RunDiagnosticsQuery)(nil)
	_ gocmd.Querier[TestWalletConnectionMessage, diagnostics.ConnectionTestResult] = (*TestWalletConnectionQuery)(nil)
	_ gocmd.Querier[FindUserMessage, core.User]                                    = (*FindUserQuery)(nil)

	_ IdentityReader    = (*core.Reconciler)(nil)
	_ DiagnosticsRunner = (*diagnostics.Probe)(nil)
)
