package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"topicrelay/internal/turnstile"
)

var (
	// ErrThreadUnavailable means no live thread could be resolved or created
	ErrThreadUnavailable = errors.New("thread unavailable")
	// ErrTicketInvalid means the ticket is unknown, expired or owned by someone else
	ErrTicketInvalid = errors.New("ticket invalid or expired")
	// ErrUnboundThread means a staff command was issued outside a user's thread
	ErrUnboundThread = errors.New("no user is bound to this thread")
)

// Scheduler runs deferred work after the triggering request has returned
type Scheduler interface {
	After(delay time.Duration, name string, fn func(ctx context.Context))
}

// ChallengeVerifier checks a client-submitted proof token
type ChallengeVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*turnstile.Response, error)
}

// keyedMutex serializes work per key inside this process
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// lock acquires the mutex for key and returns its release func
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
