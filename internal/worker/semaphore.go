package worker

import (
	"context"
)

// Semaphore bounds how many scoring runs may be in flight at once.
// The upload server holds one slot per request being scored.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a new semaphore with the given limit (minimum 1)
func NewSemaphore(limit int) *Semaphore {
	if limit <= 0 {
		limit = 1
	}

	return &Semaphore{
		slots: make(chan struct{}, limit),
	}
}

// TryAcquire takes a slot without blocking and reports whether it got one
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// AcquireContext takes a slot, waiting until one frees up or ctx ends
func (s *Semaphore) AcquireContext(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot. Releasing more than was acquired panics.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
		panic("semaphore: release without acquire")
	}
}

// InUse returns the number of held slots
func (s *Semaphore) InUse() int {
	return len(s.slots)
}

// Available returns the number of free slots
func (s *Semaphore) Available() int {
	return cap(s.slots) - len(s.slots)
}

// Limit returns the maximum number of concurrent holders
func (s *Semaphore) Limit() int {
	return cap(s.slots)
}
