package command

import (
	"strings"

	"github.com/goliatone/go-unifiedauth/core"
)

const (
	TypeConnectWallet = "unifiedauth.command.wallet.connect"
	TypeLogout        = "unifiedauth.command.logout"
	TypeRegister      = "unifiedauth.command.user.register"
	TypeSignIn        = "unifiedauth.command.session.sign_in"
)

type ConnectWalletMessage struct{}

func (ConnectWalletMessage) Type() string { return TypeConnectWallet }

type ConnectWalletResult struct {
	Connected bool
	State     core.ReadModel
}

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

type RegisterMessage struct {
	Input core.CreateUserInput
}

func (RegisterMessage) Type() string { return TypeRegister }

func (m RegisterMessage) Validate() error {
	in := m.Input.Normalize()
	if in.Email == "" && in.WalletAddress == "" {
		return commandValidationError("email", "email or wallet address is required")
	}
	if err := in.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid user input")
	}
	return nil
}

type SignInMessage struct {
	Email string
}

func (SignInMessage) Type() string { return TypeSignIn }

func (m SignInMessage) Validate() error {
	email := strings.TrimSpace(m.Email)
	if email == "" {
		return commandValidationError("email", "email is required")
	}
	if !strings.Contains(email, "@") {
		return commandValidationError("email", "email is invalid")
	}
	return nil
}
