// Package txn implements the per-client transaction controller: the
// IDLE/IN_MULTI state machine behind MULTI, EXEC, and DISCARD.
//
// A Controller belongs to exactly one client connection and is never
// accessed concurrently (the server is one-goroutine-per-connection), so it
// carries no internal locking of its own.
package txn

import "errors"

// ErrNestedMulti is MULTI's reply while already IN_MULTI.
var ErrNestedMulti = errors.New("MULTI calls can not be nested")

// ErrExecWithoutMulti is EXEC's reply while IDLE.
var ErrExecWithoutMulti = errors.New("EXEC without MULTI")

// ErrDiscardWithoutMulti is DISCARD's reply while IDLE.
var ErrDiscardWithoutMulti = errors.New("DISCARD without MULTI")

// Command is one queued command awaiting EXEC replay.
type Command struct {
	Name string
	Args []string
}

// Controller tracks a single client's transaction state.
type Controller struct {
	inMulti bool
	queue   []Command
}

// New returns a controller in the IDLE state.
func New() *Controller { return &Controller{} }

// InMulti reports whether the client is currently IN_MULTI — the dispatcher
// consults this to decide whether an incoming command should be queued
// rather than executed.
func (c *Controller) InMulti() bool { return c.inMulti }

// Multi handles the MULTI command: IDLE transitions to IN_MULTI; IN_MULTI
// returns ErrNestedMulti and stays IN_MULTI.
func (c *Controller) Multi() error {
	if c.inMulti {
		return ErrNestedMulti
	}
	c.inMulti = true
	c.queue = nil
	return nil
}

// Queue appends a command to the pending transaction. Callers must only call
// this while InMulti is true.
func (c *Controller) Queue(name string, args []string) {
	c.queue = append(c.queue, Command{Name: name, Args: args})
}

// Exec handles EXEC: IN_MULTI transitions to IDLE and returns the queued
// commands for the dispatcher to replay (nil, not an error, for an empty
// queue — EXEC on an empty transaction replies with an empty array). IDLE
// returns ErrExecWithoutMulti.
func (c *Controller) Exec() ([]Command, error) {
	if !c.inMulti {
		return nil, ErrExecWithoutMulti
	}
	queued := c.queue
	c.inMulti = false
	c.queue = nil
	return queued, nil
}

// Discard handles DISCARD: IN_MULTI clears the queue and transitions to
// IDLE. IDLE returns ErrDiscardWithoutMulti.
func (c *Controller) Discard() error {
	if !c.inMulti {
		return ErrDiscardWithoutMulti
	}
	c.inMulti = false
	c.queue = nil
	return nil
}
