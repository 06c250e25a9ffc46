package query

import "strings"

const (
	TypeCurrentIdentity      = "unifiedauth.query.identity.current"
	TypeRunDiagnostics       = "unifiedauth.query.diagnostics.run"
	TypeTestWalletConnection = "unifiedauth.query.diagnostics.test_connection"
	TypeFindUser             = "unifiedauth.query.user.find"
)

type CurrentIdentityMessage struct{}

func (CurrentIdentityMessage) Type() string { return TypeCurrentIdentity }

type RunDiagnosticsMessage struct{}

func (RunDiagnosticsMessage) Type() string { return TypeRunDiagnostics }

type TestWalletConnectionMessage struct{}

func (TestWalletConnectionMessage) Type() string { return TypeTestWalletConnection }

// FindUserMessage looks a user up by exactly one of its keys.
type FindUserMessage struct {
	ID            string
	Email         string
	WalletAddress string
}

func (FindUserMessage) Type() string { return TypeFindUser }

func (m FindUserMessage) Validate() error {
	set := 0
	for _, value := range []string{m.ID, m.Email, m.WalletAddress} {
		if strings.TrimSpace(value) != "" {
			set++
		}
	}
	switch set {
	case 0:
		return queryValidationError("id", "one of id, email or wallet address is required")
	case 1:
		return nil
	default:
		return queryValidationError("id", "only one lookup key may be set")
	}
}
