package core

import (
	"context"
	"sync"
)

type fakeCredentialsSource struct {
	mu           sync.Mutex
	session      CredentialsSession
	signOutErr   error
	signOutPanic bool
	signOutCalls int
	listeners    map[int]func()
	nextListener int
}

func newFakeCredentialsSource() *fakeCredentialsSource {
	return &fakeCredentialsSource{listeners: map[int]func(){}}
}

func (s *fakeCredentialsSource) Session() CredentialsSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.session)
}

func (s *fakeCredentialsSource) SignOut(context.Context) error {
	s.mu.Lock()
	s.signOutCalls++
	shouldPanic := s.signOutPanic
	err := s.signOutErr
	if err == nil && !shouldPanic {
		s.session = CredentialsSession{}
	}
	s.mu.Unlock()
	if shouldPanic {
		panic("sign out exploded")
	}
	if err == nil {
		s.notify()
	}
	return err
}

func (s *fakeCredentialsSource) Subscribe(listener func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *fakeCredentialsSource) signIn(user SessionUser) {
	s.mu.Lock()
	s.session = CredentialsSession{Authenticated: true, User: &user}
	s.mu.Unlock()
	s.notify()
}

func (s *fakeCredentialsSource) listenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *fakeCredentialsSource) notify() {
	s.mu.Lock()
	listeners := make([]func(), 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()
	for _, listener := range listeners {
		listener()
	}
}

type fakeWalletSource struct {
	mu              sync.Mutex
	wallet          *Wallet
	connectAddress  string
	connectResult   bool
	connectErr      error
	connectPanic    bool
	notifyOnConnect bool
	disconnectErr   error
	connectCalls    int
	disconnectCalls int
	listeners       map[int]func()
	nextListener    int
}

func newFakeWalletSource() *fakeWalletSource {
	return &fakeWalletSource{listeners: map[int]func(){}}
}

func (s *fakeWalletSource) Wallet() *Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneWallet(s.wallet)
}

func (s *fakeWalletSource) Connect(context.Context) (bool, error) {
	s.mu.Lock()
	s.connectCalls++
	if s.connectPanic {
		s.mu.Unlock()
		panic("provider exploded")
	}
	if s.connectErr != nil || !s.connectResult {
		err := s.connectErr
		s.mu.Unlock()
		return false, err
	}
	s.wallet = &Wallet{Address: s.connectAddress}
	notify := s.notifyOnConnect
	s.mu.Unlock()
	if notify {
		s.notify()
	}
	return true, nil
}

func (s *fakeWalletSource) Disconnect(context.Context) error {
	s.mu.Lock()
	s.disconnectCalls++
	err := s.disconnectErr
	if err == nil {
		s.wallet = nil
	}
	s.mu.Unlock()
	if err == nil {
		s.notify()
	}
	return err
}

func (s *fakeWalletSource) Subscribe(listener func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *fakeWalletSource) setWallet(address string) {
	s.mu.Lock()
	s.wallet = &Wallet{Address: address}
	s.mu.Unlock()
	s.notify()
}

func (s *fakeWalletSource) notify() {
	s.mu.Lock()
	listeners := make([]func(), 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()
	for _, listener := range listeners {
		listener()
	}
}

// plainWalletSource does not implement ChangeNotifier.
type plainWalletSource struct {
	wallet *Wallet
}

func (s *plainWalletSource) Wallet() *Wallet { return s.wallet }

func (s *plainWalletSource) Connect(context.Context) (bool, error) {
	s.wallet = &Wallet{Address: "0xabcdef0123456789"}
	return true, nil
}

func (s *plainWalletSource) Disconnect(context.Context) error {
	s.wallet = nil
	return nil
}

type recordingObserver struct {
	mu     sync.Mutex
	events []TransitionEvent
	err    error
}

func (o *recordingObserver) ObserveTransition(_ context.Context, event TransitionEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return o.err
}

func (o *recordingObserver) snapshot() []TransitionEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]TransitionEvent(nil), o.events...)
}

type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (m *recordingMetrics) IncCounter(_ context.Context, name string, value int64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]int64{}
	}
	m.counters[name] += value
}

func (m *recordingMetrics) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (m *recordingMetrics) count(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

func newTestReconciler(
	credentials CredentialsSource,
	wallet WalletSource,
	opts ...Option,
) (*Reconciler, error) {
	opts = append([]Option{WithLogger(stubLogger{})}, opts...)
	return NewReconciler(Config{}, credentials, wallet, opts...)
}

// gatedWalletSource parks the first Wallet read after arm until release, then
// returns the value it saw before parking.
type gatedWalletSource struct {
	mu      sync.Mutex
	wallet  *Wallet
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (s *gatedWalletSource) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	s.entered = make(chan struct{})
	s.release = make(chan struct{})
}

func (s *gatedWalletSource) Wallet() *Wallet {
	s.mu.Lock()
	seen := cloneWallet(s.wallet)
	gated := s.armed
	s.armed = false
	entered, release := s.entered, s.release
	s.mu.Unlock()
	if gated {
		close(entered)
		<-release
	}
	return seen
}

func (s *gatedWalletSource) Connect(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = &Wallet{Address: "0x1234567890abcdef"}
	return true, nil
}

func (s *gatedWalletSource) Disconnect(context.Context) error {
	s.setWallet(nil)
	return nil
}

func (s *gatedWalletSource) setWallet(wallet *Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = wallet
}
