package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// CredentialsSource is the credentials-based session collaborator.
type CredentialsSource interface {
	Session() CredentialsSession
	SignOut(ctx context.Context) error
}

// WalletSource is the browser wallet connection collaborator. Connect may
// block until the user answers the wallet's approval prompt.
type WalletSource interface {
	Wallet() *Wallet
	Connect(ctx context.Context) (bool, error)
	Disconnect(ctx context.Context) error
}

// ChangeNotifier is implemented by sources that push change notifications.
type ChangeNotifier interface {
	Subscribe(listener func()) (unsubscribe func())
}

type TransitionObserver interface {
	ObserveTransition(ctx context.Context, event TransitionEvent) error
}

type TransitionObserverFunc func(ctx context.Context, event TransitionEvent) error

func (f TransitionObserverFunc) ObserveTransition(ctx context.Context, event TransitionEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type UserRepository interface {
	Create(ctx context.Context, in CreateUserInput) (User, error)
	Get(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByWalletAddress(ctx context.Context, address string) (User, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
