package cds

import (
	"sort"
	"sync"

	"github.com/joshuapare/cdskit/cds/registry"
)

// AppDirectory reports whether an application is active. Delete refuses to
// release storage owned by an active application.
type AppDirectory = registry.AppDirectory

// StaticApps is an AppDirectory backed by an explicit set of names.
type StaticApps struct {
	mu     sync.RWMutex
	active map[string]bool
}

// NewStaticApps returns a directory with the given applications active.
func NewStaticApps(names ...string) *StaticApps {
	a := &StaticApps{active: make(map[string]bool, len(names))}
	for _, n := range names {
		if n != "" {
			a.active[n] = true
		}
	}
	return a
}

// IsActive implements AppDirectory.
func (a *StaticApps) IsActive(app string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active[app]
}

// Start marks app active.
func (a *StaticApps) Start(app string) {
	a.mu.Lock()
	a.active[app] = true
	a.mu.Unlock()
}

// Stop marks app inactive.
func (a *StaticApps) Stop(app string) {
	a.mu.Lock()
	delete(a.active, app)
	a.mu.Unlock()
}

// Active returns the active applications, sorted.
func (a *StaticApps) Active() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.active))
	for n := range a.active {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
