package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-unifiedauth/core"
	"github.com/goliatone/go-unifiedauth/diagnostics"
)

type IdentityReader interface {
	Snapshot() core.ReadModel
}

type DiagnosticsRunner interface {
	RunDiagnostics() diagnostics.Report
	TestWalletConnection(ctx context.Context) diagnostics.ConnectionTestResult
}

type CurrentIdentityQuery struct {
	reader IdentityReader
}

func NewCurrentIdentityQuery(reader IdentityReader) *CurrentIdentityQuery {
	return &CurrentIdentityQuery{reader: reader}
}

func (q *CurrentIdentityQuery) Query(_ context.Context, _ CurrentIdentityMessage) (core.ReadModel, error) {
	if q == nil || q.reader == nil {
		return core.ReadModel{}, queryDependencyError("query: identity reader is required")
	}
	return q.reader.Snapshot(), nil
}

type RunDiagnosticsQuery struct {
	runner DiagnosticsRunner
}

func NewRunDiagnosticsQuery(runner DiagnosticsRunner) *RunDiagnosticsQuery {
	return &RunDiagnosticsQuery{runner: runner}
}

func (q *RunDiagnosticsQuery) Query(_ context.Context, _ RunDiagnosticsMessage) (diagnostics.Report, error) {
	if q == nil || q.runner == nil {
		return diagnostics.Report{}, queryDependencyError("query: diagnostics runner is required")
	}
	return q.runner.RunDiagnostics(), nil
}

type TestWalletConnectionQuery struct {
	runner DiagnosticsRunner
}

func NewTestWalletConnectionQuery(runner DiagnosticsRunner) *TestWalletConnectionQuery {
	return &TestWalletConnectionQuery{runner: runner}
}

// Query reports a failed connection attempt in the result, not as an error.
func (q *TestWalletConnectionQuery) Query(
	ctx context.Context,
	_ TestWalletConnectionMessage,
) (diagnostics.ConnectionTestResult, error) {
	if q == nil || q.runner == nil {
		return diagnostics.ConnectionTestResult{}, queryDependencyError("query: diagnostics runner is required")
	}
	return q.runner.TestWalletConnection(ctx), nil
}

type FindUserQuery struct {
	users core.UserRepository
}

func NewFindUserQuery(users core.UserRepository) *FindUserQuery {
	return &FindUserQuery{users: users}
}

func (q *FindUserQuery) Query(ctx context.Context, msg FindUserMessage) (core.User, error) {
	if q == nil || q.users == nil {
		return core.User{}, queryDependencyError("query: user repository is required")
	}
	if err := msg.Validate(); err != nil {
		return core.User{}, err
	}
	switch {
	case strings.TrimSpace(msg.ID) != "":
		return q.users.Get(ctx, msg.ID)
	case strings.TrimSpace(msg.Email) != "":
		return q.users.FindByEmail(ctx, msg.Email)
	default:
		return q.users.FindByWalletAddress(ctx, msg.WalletAddress)
	}
}
