package search

import (
	"sync"
	"sync/atomic"

	"github.com/harrison/mailscan/internal/models"
)

// Coordinator holds the state shared by all search tasks of a run:
// progress counters and the set of targets that already have a match.
// Every method is safe for concurrent use and none of them blocks on I/O.
type Coordinator struct {
	total     atomic.Int64
	completed atomic.Int64

	mu    sync.Mutex
	found map[string]struct{}
}

// NewCoordinator returns an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		found: make(map[string]struct{}),
	}
}

// Register fixes the number of targets for the run.
// Only the first call with a positive total takes effect.
func (c *Coordinator) Register(total int) {
	if total < 0 {
		total = 0
	}
	c.total.CompareAndSwap(0, int64(total))
}

// MarkTargetDone records that one target's search returned and returns the
// progress this call produced. Completed never moves past Total.
func (c *Coordinator) MarkTargetDone() models.Progress {
	total := c.total.Load()
	for {
		done := c.completed.Load()
		if done >= total {
			return models.Progress{Completed: done, Total: total}
		}
		if c.completed.CompareAndSwap(done, done+1) {
			return models.Progress{Completed: done + 1, Total: total}
		}
	}
}

// TryClaim atomically adds target to the found set.
// Returns true if the caller is the first to claim it.
func (c *Coordinator) TryClaim(target models.Target) bool {
	key := target.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.found[key]; ok {
		return false
	}
	c.found[key] = struct{}{}
	return true
}

// IsClaimed reports whether target already has a recorded match.
func (c *Coordinator) IsClaimed(target models.Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.found[target.Key()]
	return ok
}

// Found returns the number of claimed targets.
func (c *Coordinator) Found() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.found)
}

// Snapshot returns the current progress.
func (c *Coordinator) Snapshot() models.Progress {
	return models.Progress{
		Completed: c.completed.Load(),
		Total:     c.total.Load(),
	}
}
