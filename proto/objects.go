package proto

import "github.com/mazei513/wlsession/wire"

// Display is the wl_display singleton.
type Display struct{}

func (Display) ID() wire.ObjectID { return wire.DisplayID }

// Sync asks the compositor to fire done on callback once every
// preceding request has been handled.
func (d Display) Sync(callback wire.ObjectID) Request {
	return Request{Object: d.ID(), Opcode: displaySync, Payload: Sync{Callback: callback}}
}

func (d Display) GetRegistry(registry wire.ObjectID) Request {
	return Request{Object: d.ID(), Opcode: displayGetRegistry, Payload: GetRegistry{Registry: registry}}
}

// Registry is a wl_registry.
type Registry struct {
	id wire.ObjectID
}

func NewRegistry(id wire.ObjectID) *Registry {
	return &Registry{id: id}
}

func (r *Registry) ID() wire.ObjectID { return r.id }

func (r *Registry) Bind(name uint32, id wire.NewID) Request {
	return Request{Object: r.id, Opcode: registryBind, Payload: Bind{Name: name, ID: id}}
}

// Callback is a one-shot wl_callback.
type Callback struct {
	id wire.ObjectID
}

func NewCallback(id wire.ObjectID) *Callback {
	return &Callback{id: id}
}

func (c *Callback) ID() wire.ObjectID { return c.id }

// SessionLockManager is an ext_session_lock_manager_v1.
type SessionLockManager struct {
	id wire.ObjectID
}

func NewSessionLockManager(id wire.ObjectID) *SessionLockManager {
	return &SessionLockManager{id: id}
}

func (m *SessionLockManager) ID() wire.ObjectID { return m.id }

func (m *SessionLockManager) Destroy() Request {
	return Request{Object: m.id, Opcode: lockManagerDestroy, Payload: Empty{}}
}

func (m *SessionLockManager) Lock(lock wire.ObjectID) Request {
	return Request{Object: m.id, Opcode: lockManagerLock, Payload: Lock{Lock: lock}}
}

// SessionLock is an ext_session_lock_v1.
type SessionLock struct {
	id wire.ObjectID
}

func NewSessionLock(id wire.ObjectID) *SessionLock {
	return &SessionLock{id: id}
}

func (l *SessionLock) ID() wire.ObjectID { return l.id }

// Destroy is only valid once the compositor has sent finished, or
// before locked has arrived.
func (l *SessionLock) Destroy() Request {
	return Request{Object: l.id, Opcode: lockDestroy, Payload: Empty{}}
}

func (l *SessionLock) UnlockAndDestroy() Request {
	return Request{Object: l.id, Opcode: lockUnlockAndDestroy, Payload: Empty{}}
}
