package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	unifiedauth "github.com/goliatone/go-unifiedauth"
	"github.com/goliatone/go-unifiedauth/core"
	"github.com/goliatone/go-unifiedauth/diagnostics"
	"github.com/goliatone/go-unifiedauth/host"
	"github.com/goliatone/go-unifiedauth/sources"
	sqlstore "github.com/goliatone/go-unifiedauth/store/sql"
)

// runtime is the fully wired stack behind one CLI invocation.
type runtime struct {
	config      core.Config
	logger      glog.Logger
	environment *host.Snapshot
	client      *persistence.Client
	users       core.UserRepository
	transitions *sqlstore.TransitionStore
	session     *sources.SessionSource
	wallet      *sources.WalletConnector
	reconciler  *core.Reconciler
	facade      *unifiedauth.Facade
}

type runtimeOptions struct {
	database bool
}

func newRuntime(ctx context.Context, s settings, opts runtimeOptions) (*runtime, error) {
	_, logger := glog.Resolve("unifiedauth.cli", nil, nil)
	rt := &runtime{logger: glog.Ensure(logger)}

	cfg, err := core.ResolveConfig(ctx, s.runtimeConfig(),
		core.NewCfgxConfigProvider(core.NewFileConfigLoader(s.ConfigPath)),
		core.GoOptionsResolver{},
	)
	if err != nil {
		return nil, err
	}
	rt.config = cfg

	rt.environment = &host.Snapshot{}
	if path := strings.TrimSpace(s.SnapshotPath); path != "" {
		snapshot, err := host.LoadSnapshot(path)
		if err != nil {
			return nil, err
		}
		rt.environment = snapshot
	}

	var observers []core.TransitionObserver
	if opts.database {
		if err := rt.openDatabase(ctx, s); err != nil {
			return nil, err
		}
		observers = append(observers, rt.transitions)
	} else {
		rt.users = core.NewMemoryUserRepository()
	}

	rt.session, err = sources.NewSessionSource(rt.users, sources.WithSessionLogger(rt.logger))
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.wallet = sources.NewWalletConnector(rt.environment, sources.WithWalletLogger(rt.logger))

	reconcilerOpts := []core.Option{core.WithLogger(rt.logger)}
	for _, observer := range observers {
		reconcilerOpts = append(reconcilerOpts, core.WithTransitionObserver(observer))
	}
	rt.reconciler, err = core.NewReconciler(cfg, rt.session, rt.wallet, reconcilerOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}

	probe := diagnostics.NewProbe(rt.environment,
		diagnostics.WithLogger(rt.logger),
		diagnostics.WithAccountsMethod(cfg.Diagnostics.AccountsMethod),
	)
	rt.facade, err = unifiedauth.NewFacade(rt.reconciler,
		unifiedauth.WithAccountService(rt.session),
		unifiedauth.WithDiagnostics(probe),
		unifiedauth.WithUserRepository(rt.users),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (r *runtime) openDatabase(ctx context.Context, s settings) error {
	client, err := sqlstore.Open(ctx, s.Database)
	if err != nil {
		return err
	}
	r.client = client

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		r.Close()
		return err
	}
	r.transitions = factory.TransitionStore()
	r.users = factory.UserStore()
	if !s.CacheUsers {
		return nil
	}

	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = 5 * time.Minute
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		r.Close()
		return fmt.Errorf("unifiedauth: user cache: %w", err)
	}
	cached, err := sqlstore.NewCachedUserStore(factory.UserStore(), cacheService)
	if err != nil {
		r.Close()
		return err
	}
	r.users = cached
	return nil
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	if r.reconciler != nil {
		r.reconciler.Stop()
	}
	if r.client != nil {
		_ = r.client.Close()
		r.client = nil
	}
}
