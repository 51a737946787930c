package utils

import "sync"

// LossPolicy decides whether a user's next outcome is forced toward a loss.
// Consume takes the flag at most once per round; a second call within the same
// round returns false. Injected into game samplers so the override stays out
// of the core sampling logic.
//
// This is a deliberate anti-fairness mechanism carried over from the product.
// Whether it belongs in a bot that implies fair odds is a product decision,
// not an engineering one.
type LossPolicy interface {
	Armed(userID int64) bool
	Consume(userID int64) bool
}

// CurseList is the in-memory LossPolicy armed by the admin command.
type CurseList struct {
	mu    sync.Mutex
	armed map[int64]bool
}

// Curses is the process-wide loss policy.
var Curses = NewCurseList()

// NewCurseList returns an empty curse list.
func NewCurseList() *CurseList {
	return &CurseList{armed: make(map[int64]bool)}
}

// Arm flags a user's next round for a forced loss.
func (c *CurseList) Arm(userID int64) {
	c.mu.Lock()
	c.armed[userID] = true
	c.mu.Unlock()
}

// Disarm clears the flag without consuming it.
func (c *CurseList) Disarm(userID int64) {
	c.mu.Lock()
	delete(c.armed, userID)
	c.mu.Unlock()
}

// Armed reports the flag without consuming it.
func (c *CurseList) Armed(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed[userID]
}

// Consume takes the flag. Only the first call per armed round returns true.
func (c *CurseList) Consume(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed[userID] {
		delete(c.armed, userID)
		return true
	}
	return false
}
