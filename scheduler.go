package edgepurge

import (
	"sync"
	"time"
)

// Scheduler runs functions after a fixed delay. Tasks are fire-and-forget:
// once enqueued there is no cancellation path, and a later purge for the
// same item does not replace a pending one. Purging is idempotent, so a
// duplicate deferred run is harmless.
type Scheduler struct {
	mu   sync.Mutex
	wg   sync.WaitGroup
	done chan struct{}
}

// NewScheduler creates a running Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{done: make(chan struct{})}
}

// After enqueues fn to run once after d. After a Stop, calls are dropped.
func (s *Scheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return
	default:
	}
	s.wg.Add(1)
	s.mu.Unlock()

	timer := time.NewTimer(d)
	go func() {
		defer s.wg.Done()
		select {
		case <-timer.C:
			fn()
		case <-s.done:
			timer.Stop()
		}
	}()
}

// Stop prevents further tasks and releases pending timers without running
// them. It blocks until every in-flight goroutine has returned.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
