package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
)

var (
	// ErrNoProvider is returned when no wallet software is injected. The
	// message is shown to users verbatim.
	ErrNoProvider          = errors.New("No ethereum provider found")
	ErrPropertyUnavailable = errors.New("host: property unavailable")
	ErrUnsupportedMethod   = errors.New("host: unsupported request method")
)

// Snapshot is a recorded host environment. It decodes from YAML or JSON and
// replays the recorded provider deterministically.
type Snapshot struct {
	Agent    string            `yaml:"user_agent" json:"user_agent"`
	Injected *ProviderSnapshot `yaml:"provider,omitempty" json:"provider,omitempty"`

	once     sync.Once
	provider *StaticProvider
}

type ProviderSnapshot struct {
	Properties        map[string]any     `yaml:"properties,omitempty" json:"properties,omitempty"`
	FailingProperties []string           `yaml:"failing_properties,omitempty" json:"failing_properties,omitempty"`
	Providers         []ProviderSnapshot `yaml:"providers,omitempty" json:"providers,omitempty"`
	Accounts          []string           `yaml:"accounts,omitempty" json:"accounts,omitempty"`
	Authorized        bool               `yaml:"authorized,omitempty" json:"authorized,omitempty"`
	RequestError      string             `yaml:"request_error,omitempty" json:"request_error,omitempty"`
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("host: read snapshot %s: %w", path, err)
	}
	return ParseSnapshot(data)
}

func ParseSnapshot(data []byte) (*Snapshot, error) {
	snapshot := &Snapshot{}
	if err := yaml.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("host: decode snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *Snapshot) UserAgent() string {
	if s == nil {
		return ""
	}
	return s.Agent
}

// Provider returns the replayed provider. The same instance is returned on
// every call so authorization state survives between requests.
func (s *Snapshot) Provider() Provider {
	if s == nil || s.Injected == nil {
		return nil
	}
	s.once.Do(func() {
		s.provider = NewStaticProvider(*s.Injected)
	})
	return s.provider
}

// StaticProvider replays a ProviderSnapshot. eth_requestAccounts authorizes
// the provider; eth_accounts only reports accounts once authorized.
type StaticProvider struct {
	mu         sync.Mutex
	snapshot   ProviderSnapshot
	failing    map[string]struct{}
	children   []Provider
	authorized bool
	requests   []RequestArguments
}

func NewStaticProvider(snapshot ProviderSnapshot) *StaticProvider {
	provider := &StaticProvider{
		snapshot:   snapshot,
		failing:    map[string]struct{}{},
		authorized: snapshot.Authorized,
	}
	for _, name := range snapshot.FailingProperties {
		provider.failing[name] = struct{}{}
	}
	if snapshot.Providers != nil {
		provider.children = make([]Provider, 0, len(snapshot.Providers))
		for _, child := range snapshot.Providers {
			provider.children = append(provider.children, NewStaticProvider(child))
		}
	}
	return provider
}

func (p *StaticProvider) PropertyNames() []string {
	names := make([]string, 0, len(p.snapshot.Properties)+len(p.failing))
	for name := range p.snapshot.Properties {
		names = append(names, name)
	}
	for name := range p.failing {
		if _, ok := p.snapshot.Properties[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (p *StaticProvider) Property(name string) (any, error) {
	if _, failing := p.failing[name]; failing {
		return nil, fmt.Errorf("%w: %s", ErrPropertyUnavailable, name)
	}
	value, ok := p.snapshot.Properties[name]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (p *StaticProvider) Providers() []Provider {
	if p.children == nil {
		return nil
	}
	out := make([]Provider, len(p.children))
	copy(out, p.children)
	return out
}

func (p *StaticProvider) Request(ctx context.Context, args RequestArguments) (any, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, args)

	if message := strings.TrimSpace(p.snapshot.RequestError); message != "" {
		return nil, errors.New(message)
	}
	switch args.Method {
	case MethodRequestAccounts:
		p.authorized = true
		return append([]string(nil), p.snapshot.Accounts...), nil
	case MethodAccounts:
		if !p.authorized {
			return []string{}, nil
		}
		return append([]string(nil), p.snapshot.Accounts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, args.Method)
	}
}

// Requests returns the requests received so far.
func (p *StaticProvider) Requests() []RequestArguments {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RequestArguments(nil), p.requests...)
}

// Revoke drops the authorization granted by an earlier account request.
func (p *StaticProvider) Revoke() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authorized = false
}

var (
	_ Environment = (*Snapshot)(nil)
	_ Provider    = (*StaticProvider)(nil)
)
