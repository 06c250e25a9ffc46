package core

import (
	"fmt"
	"strings"
)

const (
	DefaultDisplayNamePlaceholder = "User"
	DefaultAccountsMethod         = "eth_requestAccounts"
)

type IdentityConfig struct {
	DisplayNamePlaceholder string `koanf:"display_name_placeholder" mapstructure:"display_name_placeholder"`
}

type DiagnosticsConfig struct {
	AccountsMethod string `koanf:"accounts_method" mapstructure:"accounts_method"`
}

type Config struct {
	ServiceName string            `koanf:"service_name" mapstructure:"service_name"`
	Identity    IdentityConfig    `koanf:"identity" mapstructure:"identity"`
	Diagnostics DiagnosticsConfig `koanf:"diagnostics" mapstructure:"diagnostics"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "unifiedauth",
		Identity: IdentityConfig{
			DisplayNamePlaceholder: DefaultDisplayNamePlaceholder,
		},
		Diagnostics: DiagnosticsConfig{
			AccountsMethod: DefaultAccountsMethod,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Identity.DisplayNamePlaceholder) == "" {
		return fmt.Errorf("core: identity.display_name_placeholder is required")
	}
	if strings.TrimSpace(c.Diagnostics.AccountsMethod) == "" {
		return fmt.Errorf("core: diagnostics.accounts_method is required")
	}
	return nil
}
