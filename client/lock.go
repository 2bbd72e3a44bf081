package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/mazei513/wlsession/proto"
)

// ErrLockFinished is returned by WaitLocked when the compositor refused
// or revoked the lock.
var ErrLockFinished = errors.New("client: compositor finished the session lock")

// LockState is the session lock sub-state of a ready connection.
type LockState int

const (
	LockUnlocked LockState = iota
	LockLocked
)

func (s LockState) String() string {
	if s == LockLocked {
		return "locked"
	}
	return "unlocked"
}

type sessionLock struct {
	obj *proto.SessionLock
	// granted is set by the locked event, finished by the finished event.
	granted  bool
	finished bool
}

// BindSessionLockManager binds ext_session_lock_manager_v1. Repeated calls
// return the same manager.
func (c *Conn) BindSessionLockManager(ctx context.Context) (*proto.SessionLockManager, error) {
	if c.manager != nil {
		return c.manager, nil
	}
	id, err := c.bind(ctx, proto.SessionLockManagerInterface, 1)
	if err != nil {
		return nil, err
	}
	c.manager = proto.NewSessionLockManager(id)
	return c.manager, nil
}

func (c *Conn) LockState() LockState {
	if c.lock != nil {
		return LockLocked
	}
	return LockUnlocked
}

// Locked reports whether the compositor has confirmed the current lock.
func (c *Conn) Locked() bool {
	return c.lock != nil && c.lock.granted
}

// Lock asks the compositor to lock the session.
func (c *Conn) Lock(ctx context.Context) error {
	if c.manager == nil {
		return ErrNoLockManager
	}
	if c.lock != nil {
		return ErrAlreadyLocked
	}
	id := c.allocate()
	c.demux.Register(id, proto.SessionLockEvents)
	if err := c.send(ctx, c.manager.Lock(id)); err != nil {
		return err
	}
	c.lock = &sessionLock{obj: proto.NewSessionLock(id)}
	c.logger.InfoContext(ctx, "session lock requested", "id", id)
	return nil
}

// WaitLocked dispatches events until the compositor either confirms the
// lock or finishes it.
func (c *Conn) WaitLocked(ctx context.Context) error {
	if c.lock == nil {
		return ErrNotLocked
	}
	for !c.lock.granted && !c.lock.finished {
		if err := c.Dispatch(ctx); err != nil {
			return err
		}
	}
	if c.lock.finished {
		return ErrLockFinished
	}
	return nil
}

// Unlock releases the lock. A lock the compositor never confirmed, or
// already finished, is destroyed instead of unlocked.
func (c *Conn) Unlock(ctx context.Context) error {
	if c.lock == nil {
		return ErrNotLocked
	}
	lock := c.lock
	req := lock.obj.UnlockAndDestroy()
	if !lock.granted || lock.finished {
		req = lock.obj.Destroy()
	}
	if err := c.send(ctx, req); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	c.lock = nil
	c.logger.InfoContext(ctx, "session unlocked", "id", lock.obj.ID(), "granted", lock.granted)
	return nil
}
