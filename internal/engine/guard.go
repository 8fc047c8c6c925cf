package engine

import "sync/atomic"

// busyGuard is a non-reentrant try-lock with no queue. A caller that fails to
// acquire it returns immediately; nothing ever waits on it.
type busyGuard struct {
	held atomic.Bool
}

func (g *busyGuard) tryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

func (g *busyGuard) release() {
	g.held.Store(false)
}

func (g *busyGuard) busy() bool {
	return g.held.Load()
}
