// Package unifiedauth merges a credentials session and a wallet connection
// into one authentication state and exposes it through go-command handlers.
package unifiedauth

import "github.com/goliatone/go-unifiedauth/core"

type Config = core.Config

type Option = core.Option

type Reconciler = core.Reconciler

type AuthMethod = core.AuthMethod
type ReadModel = core.ReadModel
type NormalizedIdentity = core.NormalizedIdentity
type TransitionEvent = core.TransitionEvent
type CredentialsSource = core.CredentialsSource
type WalletSource = core.WalletSource
type TransitionObserver = core.TransitionObserver
type UserRepository = core.UserRepository

const (
	AuthMethodCredentials = core.AuthMethodCredentials
	AuthMethodWallet      = core.AuthMethodWallet
	AuthMethodNone        = core.AuthMethodNone
)

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithTransitionObserver = core.WithTransitionObserver
	WithClock              = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewReconciler(cfg Config, credentials CredentialsSource, wallet WalletSource, opts ...Option) (*Reconciler, error) {
	return core.NewReconciler(cfg, credentials, wallet, opts...)
}
