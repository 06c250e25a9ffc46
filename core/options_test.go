package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type fixedConfigProvider struct {
	cfg Config
	err error
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, p.err
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

func TestNewReconciler_DefaultConfig(t *testing.T) {
	reconciler, err := NewReconciler(Config{}, newFakeCredentialsSource(), newFakeWalletSource())
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	cfg := reconciler.Config()
	if cfg.ServiceName != "unifiedauth" {
		t.Fatalf("expected default service_name, got %q", cfg.ServiceName)
	}
	if cfg.Identity.DisplayNamePlaceholder != DefaultDisplayNamePlaceholder {
		t.Fatalf("expected default placeholder, got %q", cfg.Identity.DisplayNamePlaceholder)
	}
	if cfg.Diagnostics.AccountsMethod != DefaultAccountsMethod {
		t.Fatalf("expected default accounts method, got %q", cfg.Diagnostics.AccountsMethod)
	}
}

func TestNewReconciler_WithXOverrides(t *testing.T) {
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{
		ServiceName: "resolved",
		Identity:    IdentityConfig{DisplayNamePlaceholder: "Member"},
		Diagnostics: DiagnosticsConfig{AccountsMethod: DefaultAccountsMethod},
	}}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	observer := &recordingObserver{}

	reconciler, err := NewReconciler(Config{ServiceName: "runtime"},
		newFakeCredentialsSource(), newFakeWalletSource(),
		WithLogger(stubLogger{}),
		WithLoggerProvider(stubLoggerProvider{logger: stubLogger{}}),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithClock(func() time.Time { return fixed }),
		WithTransitionObserver(observer),
		WithTransitionObserver(nil),
	)
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	if got := reconciler.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected resolver output, got %q", got)
	}
	if err := reconciler.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	events := observer.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected initialize event, got %d", len(events))
	}
	if !events[0].OccurredAt.Equal(fixed) {
		t.Fatalf("expected injected clock, got %s", events[0].OccurredAt)
	}
	if events[0].Metadata["service_name"] != "resolved" {
		t.Fatalf("expected service_name metadata, got %#v", events[0].Metadata)
	}
}

func TestNewReconciler_ConfigProviderErrorIsMapped(t *testing.T) {
	sentinel := errors.New("config backend unavailable")
	_, err := NewReconciler(Config{}, newFakeCredentialsSource(), newFakeWalletSource(),
		WithConfigProvider(&fixedConfigProvider{err: sentinel}),
		WithErrorMapper(func(err error) *goerrors.Error {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "mapped")
		}),
	)
	if err == nil {
		t.Fatalf("expected config provider error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors type, got %T", err)
	}
	if richErr.Message != "mapped" {
		t.Fatalf("expected custom mapper output, got %q", richErr.Message)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel")
	}
}

func TestNewReconciler_CustomErrorFactory(t *testing.T) {
	_, err := NewReconciler(Config{}, nil, newFakeWalletSource(),
		WithErrorFactory(func(message string, category ...goerrors.Category) *goerrors.Error {
			return goerrors.New("custom:"+message, category...)
		}),
	)
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors type, got %T", err)
	}
	if richErr.Message != "custom:core: credentials source is required" {
		t.Fatalf("expected custom factory message, got %q", richErr.Message)
	}
}

func TestResolveConfig_Layering(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name": "from-file",
		"identity": map[string]any{
			"display_name_placeholder": "Guest",
		},
	}})

	cfg, err := ResolveConfig(context.Background(), Config{}, provider, nil)
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.ServiceName != "from-file" {
		t.Fatalf("expected loaded service_name, got %q", cfg.ServiceName)
	}
	if cfg.Identity.DisplayNamePlaceholder != "Guest" {
		t.Fatalf("expected loaded placeholder, got %q", cfg.Identity.DisplayNamePlaceholder)
	}
	if cfg.Diagnostics.AccountsMethod != DefaultAccountsMethod {
		t.Fatalf("expected default accounts method to survive, got %q", cfg.Diagnostics.AccountsMethod)
	}

	cfg, err = ResolveConfig(context.Background(), Config{ServiceName: "runtime"}, provider, nil)
	if err != nil {
		t.Fatalf("resolve config with runtime: %v", err)
	}
	if cfg.ServiceName != "runtime" {
		t.Fatalf("expected runtime layer to win, got %q", cfg.ServiceName)
	}
	if cfg.Identity.DisplayNamePlaceholder != "Guest" {
		t.Fatalf("expected loaded placeholder under runtime, got %q", cfg.Identity.DisplayNamePlaceholder)
	}
}

func TestFileConfigLoader_YAMLAndTOML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "unifiedauth.yaml")
	if err := os.WriteFile(yamlPath, []byte("service_name: yaml-service\nidentity:\n  display_name_placeholder: Someone\n"), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	tomlPath := filepath.Join(dir, "unifiedauth.toml")
	if err := os.WriteFile(tomlPath, []byte("service_name = \"toml-service\"\n\n[diagnostics]\naccounts_method = \"eth_accounts\"\n"), 0o600); err != nil {
		t.Fatalf("write toml: %v", err)
	}

	cfg, err := ResolveConfig(context.Background(), Config{}, NewCfgxConfigProvider(NewFileConfigLoader(yamlPath)), nil)
	if err != nil {
		t.Fatalf("resolve yaml: %v", err)
	}
	if cfg.ServiceName != "yaml-service" || cfg.Identity.DisplayNamePlaceholder != "Someone" {
		t.Fatalf("unexpected yaml config %#v", cfg)
	}

	cfg, err = ResolveConfig(context.Background(), Config{}, NewCfgxConfigProvider(NewFileConfigLoader(tomlPath)), nil)
	if err != nil {
		t.Fatalf("resolve toml: %v", err)
	}
	if cfg.ServiceName != "toml-service" || cfg.Diagnostics.AccountsMethod != "eth_accounts" {
		t.Fatalf("unexpected toml config %#v", cfg)
	}
}

func TestFileConfigLoader_MissingAndUnsupported(t *testing.T) {
	dir := t.TempDir()
	raw, err := NewFileConfigLoader(filepath.Join(dir, "missing.yaml")).LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("expected optional missing file to load, got %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("expected empty raw config, got %#v", raw)
	}

	required := FileConfigLoader{Path: filepath.Join(dir, "missing.yaml")}
	if _, err := required.LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected required missing file to fail")
	}

	iniPath := filepath.Join(dir, "config.ini")
	if err := os.WriteFile(iniPath, []byte("service_name=x"), 0o600); err != nil {
		t.Fatalf("write ini: %v", err)
	}
	if _, err := NewFileConfigLoader(iniPath).LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Diagnostics.AccountsMethod = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing accounts method error")
	}
}
