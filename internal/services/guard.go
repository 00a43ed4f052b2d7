package services

import (
	"fmt"
	"sync"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// passGuard refuses a second pass against the same target within this process.
// The advisory lock covers other processes.
type passGuard struct {
	mu     sync.Mutex
	active map[string]bool
}

var activePasses = &passGuard{active: make(map[string]bool)}

func (g *passGuard) acquire(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active[key] {
		return nil, fmt.Errorf("a pass against %s is already running in this process: %w", key, erpsync.ErrSyncInProgress)
	}
	g.active[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, nil
}
