// Package diagnostics inspects the wallet provider injected into a host
// environment and runs a connectivity smoke test against it.
package diagnostics

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-unifiedauth/core"
	"github.com/goliatone/go-unifiedauth/host"
)

const (
	// PropertyReadFailed replaces provider properties whose read failed.
	PropertyReadFailed = "Error accessing property"
	// FunctionProperty replaces function-valued provider properties.
	FunctionProperty = "function"

	// NoProviderMessage matches host.ErrNoProvider.
	NoProviderMessage = "No ethereum provider found"
)

// Report is a point-in-time description of the injected provider.
type Report struct {
	BrowserName          BrowserName    `json:"browser_name" yaml:"browser_name"`
	HasProvider          bool           `json:"has_provider" yaml:"has_provider"`
	IsMetaMask           bool           `json:"is_metamask" yaml:"is_metamask"`
	IsCoinbaseWallet     bool           `json:"is_coinbase_wallet" yaml:"is_coinbase_wallet"`
	HasMultipleProviders bool           `json:"has_multiple_providers" yaml:"has_multiple_providers"`
	ProviderCount        int            `json:"provider_count" yaml:"provider_count"`
	ProviderProperties   map[string]any `json:"provider_properties" yaml:"provider_properties"`
}

// ConnectionTestResult reports the outcome of an account request. A declined
// request is a normal result with Success false.
type ConnectionTestResult struct {
	Success  bool     `json:"success" yaml:"success"`
	Accounts []string `json:"accounts,omitempty" yaml:"accounts,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
	TextCode string   `json:"text_code,omitempty" yaml:"text_code,omitempty"`
}

type Option func(*Probe)

func WithLogger(logger core.Logger) Option {
	return func(p *Probe) {
		p.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(p *Probe) {
		p.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(p *Probe) {
		if recorder != nil {
			p.metrics = recorder
		}
	}
}

// WithAccountsMethod overrides the request used by TestWalletConnection.
func WithAccountsMethod(method string) Option {
	return func(p *Probe) {
		if method = strings.TrimSpace(method); method != "" {
			p.accountsMethod = method
		}
	}
}

type Probe struct {
	env            host.Environment
	accountsMethod string
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	now            func() time.Time
}

func NewProbe(env host.Environment, opts ...Option) *Probe {
	probe := &Probe{
		env:            env,
		accountsMethod: core.DefaultAccountsMethod,
		metrics:        core.NopMetricsRecorder{},
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(probe)
		}
	}
	provider, logger := glog.Resolve("unifiedauth", probe.loggerProvider, probe.logger)
	probe.logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("unifiedauth.diagnostics"); named != nil {
			probe.logger = glog.Ensure(named)
		}
	}
	return probe
}

// RunDiagnostics never fails: property reads that error or panic are recorded
// as PropertyReadFailed.
func (p *Probe) RunDiagnostics() Report {
	report := Report{
		BrowserName:        BrowserUnknown,
		ProviderProperties: map[string]any{},
	}
	if p == nil || p.env == nil {
		return report
	}
	report.BrowserName = DetectBrowser(p.userAgent())

	provider := p.provider()
	if provider == nil {
		p.logger.Debug("diagnostics completed", "has_provider", false, "browser", string(report.BrowserName))
		return report
	}

	report.HasProvider = true
	report.IsMetaMask = host.BoolProperty(provider, host.PropertyIsMetaMask)
	report.IsCoinbaseWallet = host.BoolProperty(provider, host.PropertyIsCoinbaseWallet)

	// An absent or empty list still describes the one injected provider.
	providers := p.providers(provider)
	report.HasMultipleProviders = len(providers) > 1
	report.ProviderCount = max(len(providers), 1)

	for _, name := range p.propertyNames(provider) {
		report.ProviderProperties[name] = readProperty(provider, name)
	}

	p.logger.Debug("diagnostics completed",
		"has_provider", true,
		"browser", string(report.BrowserName),
		"provider_count", report.ProviderCount,
	)
	return report
}

// TestWalletConnection issues a single account request. It blocks until the
// provider answers or ctx is done, if the provider honours ctx.
func (p *Probe) TestWalletConnection(ctx context.Context) ConnectionTestResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if p == nil {
		return ConnectionTestResult{Error: NoProviderMessage, TextCode: core.ErrorNoProvider}
	}
	startedAt := p.now()
	provider := p.provider()
	if provider == nil {
		p.record(ctx, startedAt, "no_provider")
		return ConnectionTestResult{Error: NoProviderMessage, TextCode: core.ErrorNoProvider}
	}

	result, err := requestAccounts(ctx, provider, p.accountsMethod)
	var accounts []string
	if err == nil {
		accounts, err = host.ParseAccounts(result)
	}
	if err != nil {
		mapped := core.MapError(err)
		p.record(ctx, startedAt, "failure")
		p.logger.Info("wallet connection test failed", "error", err.Error(), "text_code", mapped.TextCode)
		return ConnectionTestResult{Error: err.Error(), TextCode: mapped.TextCode}
	}

	p.record(ctx, startedAt, "success")
	p.logger.Info("wallet connection test succeeded", "accounts", len(accounts))
	return ConnectionTestResult{Success: true, Accounts: accounts}
}

func (p *Probe) record(ctx context.Context, startedAt time.Time, status string) {
	tags := map[string]string{"status": status}
	p.metrics.IncCounter(ctx, "unifiedauth.test_wallet_connection.total", 1, tags)
	p.metrics.ObserveHistogram(ctx, "unifiedauth.test_wallet_connection.duration_ms",
		float64(p.now().Sub(startedAt).Milliseconds()), tags)
}

func (p *Probe) userAgent() (agent string) {
	defer func() {
		if recover() != nil {
			agent = ""
		}
	}()
	return p.env.UserAgent()
}

func (p *Probe) provider() (provider host.Provider) {
	if p.env == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			provider = nil
		}
	}()
	provider = p.env.Provider()
	if isNil(provider) {
		return nil
	}
	return provider
}

func (p *Probe) providers(provider host.Provider) (providers []host.Provider) {
	defer func() {
		if recover() != nil {
			providers = nil
		}
	}()
	return provider.Providers()
}

func (p *Probe) propertyNames(provider host.Provider) (names []string) {
	defer func() {
		if recover() != nil {
			names = nil
		}
	}()
	return provider.PropertyNames()
}

func readProperty(provider host.Provider, name string) (value any) {
	defer func() {
		if recover() != nil {
			value = PropertyReadFailed
		}
	}()
	raw, err := provider.Property(name)
	if err != nil {
		return PropertyReadFailed
	}
	if raw != nil && reflect.TypeOf(raw).Kind() == reflect.Func {
		return FunctionProperty
	}
	return raw
}

func requestAccounts(ctx context.Context, provider host.Provider, method string) (result any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			err = fmt.Errorf("diagnostics: provider request panicked: %v", recovered)
		}
	}()
	return provider.Request(ctx, host.RequestArguments{Method: method})
}

func isNil(provider host.Provider) bool {
	if provider == nil {
		return true
	}
	value := reflect.ValueOf(provider)
	switch value.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return value.IsNil()
	default:
		return false
	}
}
