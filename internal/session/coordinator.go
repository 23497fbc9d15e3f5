package session

import (
	"errors"
	"sync"
)

var ErrSessionBusy = errors.New("previous session is not cleaned up yet")

// Coordinator allows one running session at a time. A session holds the
// slot from Start until its teardown has finished.
type Coordinator struct {
	mutex  sync.Mutex
	active *Session
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

func (c *Coordinator) acquire(s *Session) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.active != nil {
		return ErrSessionBusy
	}
	c.active = s
	return nil
}

func (c *Coordinator) release(s *Session) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.active == s {
		c.active = nil
	}
}

// Active returns the running session, or nil.
func (c *Coordinator) Active() *Session {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.active
}
