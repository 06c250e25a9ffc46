package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-unifiedauth/core"
	"github.com/goliatone/go-unifiedauth/host"
)

var (
	ErrNoProvider = host.ErrNoProvider
	ErrNoAccounts = errors.New("sources: wallet returned no accounts")
)

// WalletConnector is a wallet source over the provider injected into a host
// environment. The provider is looked up on every call since wallet software
// may be injected after start-up.
type WalletConnector struct {
	mu        sync.RWMutex
	env       host.Environment
	flags     ConnectionFlagStore
	wallet    *core.Wallet
	listeners listenerSet
	logger    core.Logger
}

type WalletOption func(*WalletConnector)

func WithConnectionFlagStore(store ConnectionFlagStore) WalletOption {
	return func(c *WalletConnector) {
		if store != nil {
			c.flags = store
		}
	}
}

func WithWalletLogger(logger core.Logger) WalletOption {
	return func(c *WalletConnector) {
		c.logger = logger
	}
}

func NewWalletConnector(env host.Environment, opts ...WalletOption) *WalletConnector {
	connector := &WalletConnector{
		env:   env,
		flags: NewMemoryConnectionFlagStore(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(connector)
		}
	}
	connector.logger = glog.Ensure(connector.logger)
	return connector
}

func (c *WalletConnector) Wallet() *core.Wallet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.wallet == nil {
		return nil
	}
	wallet := *c.wallet
	return &wallet
}

// Connect asks the provider for accounts and adopts the first one. It blocks
// while the wallet shows its approval prompt.
func (c *WalletConnector) Connect(ctx context.Context) (bool, error) {
	accounts, err := c.request(ctx, host.MethodRequestAccounts)
	if err != nil {
		c.logger.Info("wallet connect failed", "error", err.Error())
		return false, err
	}
	if len(accounts) == 0 {
		return false, ErrNoAccounts
	}
	c.adopt(ctx, accounts[0])
	return true, nil
}

func (c *WalletConnector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	hadWallet := c.wallet != nil
	c.wallet = nil
	c.mu.Unlock()

	err := c.flags.SetConnected(ctx, false)
	if hadWallet {
		c.logger.Info("wallet disconnected")
		c.listeners.notify()
	}
	if err != nil {
		return fmt.Errorf("sources: clear wallet connection flag: %w", err)
	}
	return nil
}

// Restore reconnects a wallet connected in an earlier session without
// prompting. It reports false when no flag is stored or the provider no
// longer exposes accounts.
func (c *WalletConnector) Restore(ctx context.Context) (bool, error) {
	connected, err := c.flags.Connected(ctx)
	if err != nil {
		return false, fmt.Errorf("sources: read wallet connection flag: %w", err)
	}
	if !connected {
		return false, nil
	}
	accounts, err := c.request(ctx, host.MethodAccounts)
	if err != nil {
		return false, err
	}
	if len(accounts) == 0 {
		if err := c.flags.SetConnected(ctx, false); err != nil {
			return false, fmt.Errorf("sources: clear wallet connection flag: %w", err)
		}
		return false, nil
	}
	c.adopt(ctx, accounts[0])
	return true, nil
}

func (c *WalletConnector) Subscribe(listener func()) func() {
	return c.listeners.subscribe(listener)
}

func (c *WalletConnector) adopt(ctx context.Context, address string) {
	address = core.NormalizeWalletAddress(address)
	c.mu.Lock()
	c.wallet = &core.Wallet{Address: address}
	c.mu.Unlock()

	if err := c.flags.SetConnected(ctx, true); err != nil {
		c.logger.Error("wallet connection flag not stored", "error", err.Error())
	}
	c.logger.Info("wallet connected", "address", core.TruncateAddress(address))
	c.listeners.notify()
}

func (c *WalletConnector) request(ctx context.Context, method string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.env == nil {
		return nil, ErrNoProvider
	}
	provider := c.env.Provider()
	if provider == nil {
		return nil, ErrNoProvider
	}
	result, err := provider.Request(ctx, host.RequestArguments{Method: method})
	if err != nil {
		return nil, err
	}
	return host.ParseAccounts(result)
}

var (
	_ core.WalletSource   = (*WalletConnector)(nil)
	_ core.ChangeNotifier = (*WalletConnector)(nil)
)
