package sqlstore

import "github.com/goliatone/go-unifiedauth/core"

var (
	_ core.UserRepository     = (*UserStore)(nil)
	_ core.UserRepository     = (*CachedUserStore)(nil)
	_ core.TransitionObserver = (*TransitionStore)(nil)
)
