// Package host abstracts the browser environment a wallet provider is injected
// into. Probes and wallet sources depend on these interfaces instead of live
// browser globals.
package host

import (
	"context"
	"fmt"
	"strings"
)

const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"

	PropertyIsMetaMask       = "isMetaMask"
	PropertyIsCoinbaseWallet = "isCoinbaseWallet"
)

// Environment exposes the host capabilities used by the probe and the wallet
// connector. Provider returns nil when no wallet software is injected.
type Environment interface {
	UserAgent() string
	Provider() Provider
}

type RequestArguments struct {
	Method string
	Params []any
}

// Provider is an injected wallet provider. Property may fail for getters that
// raise on read. Providers returns nil when the provider does not advertise a
// providers list at all.
type Provider interface {
	PropertyNames() []string
	Property(name string) (any, error)
	Providers() []Provider
	Request(ctx context.Context, args RequestArguments) (any, error)
}

// ParseAccounts converts an account request result into addresses.
func ParseAccounts(result any) ([]string, error) {
	switch typed := result.(type) {
	case nil:
		return []string{}, nil
	case []string:
		out := make([]string, 0, len(typed))
		for _, account := range typed {
			if account = strings.TrimSpace(account); account != "" {
				out = append(out, account)
			}
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(typed))
		for idx, item := range typed {
			account, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("host: account %d is %T, not a string", idx, item)
			}
			if account = strings.TrimSpace(account); account != "" {
				out = append(out, account)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("host: unexpected accounts response %T", result)
	}
}

// BoolProperty reads a boolean capability flag. Missing, failing or non-bool
// properties read as false.
func BoolProperty(provider Provider, name string) (value bool) {
	if provider == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			value = false
		}
	}()
	raw, err := provider.Property(name)
	if err != nil {
		return false
	}
	flag, ok := raw.(bool)
	return ok && flag
}
