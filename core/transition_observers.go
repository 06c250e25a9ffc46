package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// TransitionObserverSet fans a transition out to every registered observer.
// Observers are best effort: every observer runs and failures are joined.
type TransitionObserverSet struct {
	mu        sync.RWMutex
	observers []TransitionObserver
}

func NewTransitionObserverSet(observers ...TransitionObserver) *TransitionObserverSet {
	set := &TransitionObserverSet{observers: make([]TransitionObserver, 0, len(observers))}
	for _, observer := range observers {
		set.Register(observer)
	}
	return set
}

func (s *TransitionObserverSet) Register(observer TransitionObserver) {
	if s == nil || observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

func (s *TransitionObserverSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

func (s *TransitionObserverSet) ObserveTransition(ctx context.Context, event TransitionEvent) error {
	var observeErr error
	for idx, observer := range s.snapshot() {
		if err := safeObserve(ctx, observer, event); err != nil {
			observeErr = errors.Join(observeErr, fmt.Errorf("transition observer %d failed: %w", idx, err))
		}
	}
	return observeErr
}

func (s *TransitionObserverSet) snapshot() []TransitionObserver {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TransitionObserver, len(s.observers))
	copy(out, s.observers)
	return out
}

func safeObserve(ctx context.Context, observer TransitionObserver, event TransitionEvent) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("observer panic: %v", recovered)
		}
	}()
	return observer.ObserveTransition(ctx, cloneTransitionEvent(event))
}

func cloneTransitionEvent(event TransitionEvent) TransitionEvent {
	event.Metadata = cloneFields(event.Metadata)
	return event
}

var _ TransitionObserver = (*TransitionObserverSet)(nil)
