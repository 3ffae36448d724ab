// Package lock provides a named resource-lock registry. Running multiple git
// operations against one remote concurrently corrupts the checkout, and
// concurrent writers to one target's backup directory race on the same
// files on disk — both need serializing down to one worker at a time per
// resource, while leaving unrelated resources free to run in parallel.
package lock

import (
	"log/slog"
	"sync"

	"codeberg.org/opensuse/docbuildd/internal/logfields"
)

// Type identifies which class of resource a Lock guards.
type Type string

const (
	// TypeGitRemote serializes git operations against one remote URL.
	TypeGitRemote Type = "git-remote"
	// TypeBackupDir serializes writers to one target's backup directory.
	TypeBackupDir Type = "backup-dir"
)

func normalize(t Type) Type {
	switch t {
	case TypeGitRemote, TypeBackupDir:
		return t
	default:
		return TypeGitRemote
	}
}

type key struct {
	lockType Type
	resource string
}

// Registry lazily creates and hands out one *sync.Mutex per (type, resource)
// pair, shared across every caller that names the same pair.
type Registry struct {
	mu    sync.Mutex
	locks map[key]*sync.Mutex
}

// NewRegistry returns an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[key]*sync.Mutex)}
}

func (r *Registry) mutexFor(lockType Type, resource string) *sync.Mutex {
	k := key{lockType: normalize(lockType), resource: resource}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[k]
	if !ok {
		m = &sync.Mutex{}
		r.locks[k] = m
	}
	return m
}

// Lock is a handle on one named resource's mutex. It is not itself
// goroutine-safe to share between callers; each caller should obtain its own
// handle via Registry.Lock.
type Lock struct {
	registry *Registry
	lockType Type
	resource string
	mu       *sync.Mutex
	acquired bool
}

// Lock returns a handle on the mutex guarding (lockType, resource), creating
// it on first use. The handle is not yet acquired.
func (r *Registry) Lock(lockType Type, resource string) *Lock {
	return &Lock{
		registry: r,
		lockType: normalize(lockType),
		resource: resource,
		mu:       r.mutexFor(lockType, resource),
	}
}

// Acquire blocks until the resource's mutex is held by this handle.
func (l *Lock) Acquire() {
	l.mu.Lock()
	l.acquired = true
	slog.Debug("acquired resource lock", slog.String("lock_type", string(l.lockType)), logfields.Name(l.resource))
}

// TryAcquire attempts to acquire the resource's mutex without blocking. It
// reports whether the lock was obtained.
func (l *Lock) TryAcquire() bool {
	if l.mu.TryLock() {
		l.acquired = true
		slog.Debug("acquired resource lock", slog.String("lock_type", string(l.lockType)), logfields.Name(l.resource))
		return true
	}
	return false
}

// Release releases the lock if held. Calling Release without a prior
// successful Acquire/TryAcquire is a no-op.
func (l *Lock) Release() {
	if !l.acquired {
		slog.Warn("release called without a held lock", slog.String("lock_type", string(l.lockType)), logfields.Name(l.resource))
		return
	}
	l.mu.Unlock()
	l.acquired = false
	slog.Debug("released resource lock", slog.String("lock_type", string(l.lockType)), logfields.Name(l.resource))
}
