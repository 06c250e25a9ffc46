package main

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-unifiedauth/core"
	sqlstore "github.com/goliatone/go-unifiedauth/store/sql"
)

const envPrefix = "UNIFIEDAUTH_"

type settings struct {
	ConfigPath     string          `env:"CONFIG"`
	SnapshotPath   string          `env:"SNAPSHOT"`
	Output         string          `env:"OUTPUT"`
	ServiceName    string          `env:"SERVICE_NAME"`
	Placeholder    string          `env:"DISPLAY_NAME_PLACEHOLDER"`
	AccountsMethod string          `env:"ACCOUNTS_METHOD"`
	CacheUsers     bool            `env:"CACHE_USERS"`
	Database       sqlstore.Config `envPrefix:"DB_"`
}

func defaultSettings() settings {
	return settings{
		Output:     outputYAML,
		CacheUsers: true,
		Database:   sqlstore.DefaultConfig(),
	}
}

// loadSettings overlays UNIFIEDAUTH_* variables on the defaults. A nil
// environ reads the process environment.
func loadSettings(environ map[string]string) (settings, error) {
	s := defaultSettings()
	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return settings{}, fmt.Errorf("unifiedauth: parse environment: %w", err)
	}
	return s, nil
}

// runtimeConfig is the runtime layer handed to the options resolver; empty
// fields fall through to the config file and defaults.
func (s settings) runtimeConfig() core.Config {
	return core.Config{
		ServiceName: strings.TrimSpace(s.ServiceName),
		Identity: core.IdentityConfig{
			DisplayNamePlaceholder: strings.TrimSpace(s.Placeholder),
		},
		Diagnostics: core.DiagnosticsConfig{
			AccountsMethod: strings.TrimSpace(s.AccountsMethod),
		},
	}
}
