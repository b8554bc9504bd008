package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/threesixtyfive/server/internal/observability"
)

// ErrReconcileInProgress is returned when another run holds the guard
var ErrReconcileInProgress = errors.New("a reconcile run is already in progress")

// RunGuard gives one reconcile run at a time exclusive access to a key.
// Inside the process a mutex per key is used; when a lock directory is
// configured a lock file per key also excludes other server processes
// sharing the same database.
type RunGuard struct {
	lockDir string

	mu    sync.Mutex
	held  map[string]bool
	files map[string]*flock.Flock
}

// NewRunGuard creates a guard. An empty lockDir keeps exclusion in-process.
func NewRunGuard(lockDir string) (*RunGuard, error) {
	if lockDir != "" {
		if err := os.MkdirAll(lockDir, 0755); err != nil {
			return nil, fmt.Errorf("create lock dir: %w", err)
		}
	}
	return &RunGuard{
		lockDir: lockDir,
		held:    make(map[string]bool),
		files:   make(map[string]*flock.Flock),
	}, nil
}

// TryAcquire takes the key without blocking. The returned release func must
// be called once the run has written its last record.
func (g *RunGuard) TryAcquire(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held[key] {
		return nil, ErrReconcileInProgress
	}

	var fl *flock.Flock
	if g.lockDir != "" {
		fl = g.files[key]
		if fl == nil {
			fl = flock.New(filepath.Join(g.lockDir, key+".lock"))
			g.files[key] = fl
		}
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, ErrReconcileInProgress
		}
	}

	g.held[key] = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.held, key)
			if fl != nil {
				if err := fl.Unlock(); err != nil {
					observability.Warnf("Failed to release run lock %s: %v", key, err)
				}
			}
		})
	}
	return release, nil
}

// Held reports whether the key is currently taken in this process
func (g *RunGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[key]
}
