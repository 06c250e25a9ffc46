package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Reconciler merges a credentials session and a wallet connection into one
// authentication method and identity.
//
// The reconciler never holds its lock while calling into a source, so sources
// may notify synchronously from inside Connect, Disconnect or SignOut. It adds
// no timeout of its own: a wallet approval prompt that never resolves blocks
// ConnectWallet until ctx is done, if the source honours ctx at all.
type Reconciler struct {
	mu           sync.Mutex
	state        ReconcilerState
	started      bool
	unsubscribes []func()

	// evalSeq numbers evaluations as they begin reading sources. appliedSeq is
	// the number of the evaluation behind the stored state; a pass numbered
	// below it read older source state and is discarded.
	evalSeq    uint64
	appliedSeq uint64

	config          Config
	credentials     CredentialsSource
	wallet          WalletSource
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	observers       *TransitionObserverSet
	now             func() time.Time
}

func NewReconciler(cfg Config, credentials CredentialsSource, wallet WalletSource, opts ...Option) (*Reconciler, error) {
	builder := defaultReconcilerBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("unifiedauth", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("unifiedauth.reconciler"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	if credentials == nil {
		return nil, builder.errorFactory("core: credentials source is required", goerrors.CategoryBadInput).
			WithTextCode(ErrorBadInput)
	}
	if wallet == nil {
		return nil, builder.errorFactory("core: wallet source is required", goerrors.CategoryBadInput).
			WithTextCode(ErrorBadInput)
	}

	finalConfig, err := ResolveConfig(context.Background(), builder.runtimeConfig, builder.configProvider, builder.optionsResolver)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Reconciler{
		state:           ReconcilerState{Method: AuthMethodNone},
		config:          finalConfig,
		credentials:     credentials,
		wallet:          wallet,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		observers:       NewTransitionObserverSet(builder.observers...),
		now:             builder.now,
	}, nil
}

func (r *Reconciler) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

// Start subscribes to sources that push notifications and runs the initial
// evaluation. Calling Start on a started reconciler is a no-op.
func (r *Reconciler) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("core: reconciler is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.mu.Unlock()

	listenerCtx := context.WithoutCancel(ctx)
	var unsubscribes []func()
	if notifier, ok := r.credentials.(ChangeNotifier); ok {
		unsubscribes = append(unsubscribes, notifier.Subscribe(func() {
			r.Reevaluate(listenerCtx, TriggerCredentialsChange)
		}))
	}
	if notifier, ok := r.wallet.(ChangeNotifier); ok {
		unsubscribes = append(unsubscribes, notifier.Subscribe(func() {
			r.Reevaluate(listenerCtx, TriggerWalletChange)
		}))
	}

	r.mu.Lock()
	r.unsubscribes = append(r.unsubscribes, unsubscribes...)
	r.mu.Unlock()

	r.initialize(ctx)
	return nil
}

// Stop releases source subscriptions and discards the reconciler state.
func (r *Reconciler) Stop() {
	if r == nil {
		return
	}
	r.mu.Lock()
	unsubscribes := r.unsubscribes
	r.unsubscribes = nil
	r.started = false
	r.state = ReconcilerState{Method: AuthMethodNone}
	r.evalSeq++
	r.appliedSeq = r.evalSeq
	r.mu.Unlock()

	for _, unsubscribe := range unsubscribes {
		if unsubscribe != nil {
			unsubscribe()
		}
	}
}

func (r *Reconciler) State() ReconcilerState {
	if r == nil {
		return ReconcilerState{Method: AuthMethodNone}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reevaluate recomputes the method from both sources with the priority rule.
// Notifications that arrive before the first evaluation are ignored; the
// initial evaluation reads current source state anyway.
func (r *Reconciler) Reevaluate(ctx context.Context, trigger Trigger) ReconcilerState {
	if r == nil {
		return ReconcilerState{Method: AuthMethodNone}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if trigger == "" {
		trigger = TriggerReevaluate
	}

	seq := r.beginEvaluation()
	session, wallet := r.readSources(ctx)
	next := ResolveMethod(session, wallet)

	r.mu.Lock()
	if !r.state.Initialized {
		current := r.state
		r.mu.Unlock()
		r.logDebug(ctx, "ignoring change notification before initialization", map[string]any{
			"trigger": string(trigger),
		})
		return current
	}
	if seq < r.appliedSeq {
		current := r.state
		r.mu.Unlock()
		r.logDebug(ctx, "discarding stale evaluation", map[string]any{
			"trigger":        string(trigger),
			"current_method": current.Method.String(),
		})
		return current
	}
	previous := r.state.Method
	r.appliedSeq = seq
	r.state = ReconcilerState{Method: next, Initialized: true}
	current := r.state
	r.mu.Unlock()

	if previous != next {
		r.observeTransition(ctx, r.transitionEvent(previous, next, trigger))
	}
	return current
}

func (r *Reconciler) initialize(ctx context.Context) {
	seq := r.beginEvaluation()
	session, wallet := r.readSources(ctx)
	next := ResolveMethod(session, wallet)

	r.mu.Lock()
	if r.state.Initialized {
		r.mu.Unlock()
		return
	}
	previous := r.state.Method
	if seq > r.appliedSeq {
		r.appliedSeq = seq
	}
	r.state = ReconcilerState{Method: next, Initialized: true}
	r.mu.Unlock()

	r.observeTransition(ctx, r.transitionEvent(previous, next, TriggerInitialize))
}

// ConnectWallet delegates to the wallet source. On success the method is set
// to wallet before returning; on any failure it is left untouched.
func (r *Reconciler) ConnectWallet(ctx context.Context) bool {
	if r == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := r.now()

	connected, err := r.callConnect(ctx)
	if err == nil && !connected {
		err = fmt.Errorf("core: wallet connection was not established")
	}
	r.observeOperation(ctx, startedAt, "connect_wallet", err, map[string]any{
		"auth_method": r.State().Method.String(),
	})
	if err != nil {
		return false
	}

	r.setMethod(ctx, AuthMethodWallet, TriggerConnectWallet)
	return true
}

// Logout tears down the authoritative source and always leaves the method at
// none, whatever the teardown reported.
func (r *Reconciler) Logout(ctx context.Context) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := r.now()
	method := r.State().Method

	var err error
	switch method {
	case AuthMethodCredentials:
		err = safeCall(func() error { return r.credentials.SignOut(ctx) })
	case AuthMethodWallet:
		err = safeCall(func() error { return r.wallet.Disconnect(ctx) })
	default:
		return
	}

	r.observeOperation(ctx, startedAt, "logout", err, map[string]any{
		"auth_method": method.String(),
	})
	r.setMethod(ctx, AuthMethodNone, TriggerLogout)
}

// Snapshot returns the read model for the current state.
func (r *Reconciler) Snapshot() ReadModel {
	if r == nil {
		return ReadModel{AuthMethod: AuthMethodNone}
	}
	state := r.State()
	session, wallet := r.readSources(context.Background())
	method := state.Method
	if method == "" {
		method = AuthMethodNone
	}
	return ReadModel{
		IsAuthenticated: state.IsAuthenticated(),
		AuthMethod:      method,
		Identity:        NormalizeIdentity(method, session, wallet, r.config.Identity.DisplayNamePlaceholder),
		RawWallet:       wallet,
		Initialized:     state.Initialized,
	}
}

// setMethod stores method directly and supersedes every evaluation already
// reading sources.
func (r *Reconciler) setMethod(ctx context.Context, method AuthMethod, trigger Trigger) {
	r.mu.Lock()
	r.evalSeq++
	r.appliedSeq = r.evalSeq
	previous := r.state.Method
	r.state = ReconcilerState{Method: method, Initialized: r.state.Initialized}
	r.mu.Unlock()

	if previous != method {
		r.observeTransition(ctx, r.transitionEvent(previous, method, trigger))
	}
}

func (r *Reconciler) beginEvaluation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evalSeq++
	return r.evalSeq
}

func (r *Reconciler) transitionEvent(previous AuthMethod, current AuthMethod, trigger Trigger) TransitionEvent {
	if previous == "" {
		previous = AuthMethodNone
	}
	return TransitionEvent{
		Previous:   previous,
		Current:    current,
		Trigger:    trigger,
		OccurredAt: r.now(),
		Metadata: map[string]any{
			"service_name": r.config.ServiceName,
		},
	}
}

func (r *Reconciler) callConnect(ctx context.Context) (connected bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			connected = false
			err = fmt.Errorf("core: wallet connect panicked: %v", recovered)
		}
	}()
	return r.wallet.Connect(ctx)
}

func (r *Reconciler) readSources(ctx context.Context) (CredentialsSession, *Wallet) {
	var session CredentialsSession
	if err := safeCall(func() error {
		session = cloneSession(r.credentials.Session())
		return nil
	}); err != nil {
		r.logError(ctx, "credentials source read failed", map[string]any{"error": err.Error()})
		session = CredentialsSession{}
	}

	var wallet *Wallet
	if err := safeCall(func() error {
		wallet = cloneWallet(r.wallet.Wallet())
		return nil
	}); err != nil {
		r.logError(ctx, "wallet source read failed", map[string]any{"error": err.Error()})
		wallet = nil
	}
	return session, wallet
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("core: source call panicked: %v", recovered)
		}
	}()
	return fn()
}
