// Package core contains the unified authentication contracts and the
// reconciler that derives a single authentication method from a credentials
// session and a wallet connection. Source implementations, storage and
// transport adapters depend on this package; core depends on none of them.
package core
