// Package sources provides in-process credentials and wallet sources for the
// reconciler in core.
package sources

import (
	"context"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-unifiedauth/core"
)

// SessionSource is a credentials session backed by a UserRepository. Signing
// in only looks the user up; there is no password or token handling.
type SessionSource struct {
	mu        sync.RWMutex
	repo      core.UserRepository
	session   core.CredentialsSession
	listeners listenerSet
	logger    core.Logger
}

type SessionOption func(*SessionSource)

func WithSessionLogger(logger core.Logger) SessionOption {
	return func(s *SessionSource) {
		s.logger = logger
	}
}

func NewSessionSource(repo core.UserRepository, opts ...SessionOption) (*SessionSource, error) {
	if repo == nil {
		return nil, core.NewBadInputError("sources: user repository is required")
	}
	source := &SessionSource{repo: repo}
	for _, opt := range opts {
		if opt != nil {
			opt(source)
		}
	}
	source.logger = glog.Ensure(source.logger)
	return source, nil
}

// Register creates a user. It does not sign the user in.
func (s *SessionSource) Register(ctx context.Context, in core.CreateUserInput) (core.User, error) {
	user, err := s.repo.Create(ctx, in)
	if err != nil {
		return core.User{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// SignIn authenticates the user registered under email and notifies
// subscribers.
func (s *SessionSource) SignIn(ctx context.Context, email string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return core.User{}, core.NewBadInputError("sources: email is required")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return core.User{}, err
	}

	s.mu.Lock()
	s.session = core.CredentialsSession{Authenticated: true, User: user.SessionUser()}
	s.mu.Unlock()

	s.logger.Info("credentials session started", "user_id", user.ID)
	s.listeners.notify()
	return user, nil
}

func (s *SessionSource) SignOut(context.Context) error {
	s.mu.Lock()
	wasAuthenticated := s.session.Authenticated
	s.session = core.CredentialsSession{}
	s.mu.Unlock()

	if wasAuthenticated {
		s.logger.Info("credentials session ended")
		s.listeners.notify()
	}
	return nil
}

func (s *SessionSource) Session() core.CredentialsSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := core.CredentialsSession{Authenticated: s.session.Authenticated}
	if s.session.User != nil {
		user := *s.session.User
		out.User = &user
	}
	return out
}

func (s *SessionSource) Subscribe(listener func()) func() {
	return s.listeners.subscribe(listener)
}

var (
	_ core.CredentialsSource = (*SessionSource)(nil)
	_ core.ChangeNotifier    = (*SessionSource)(nil)
)
