package client

import (
	"errors"
	"fmt"

	"github.com/mazei513/wlsession/wire"
)

var (
	ErrInvalidState         = errors.New("client: request not valid in current state")
	ErrUnsupportedInterface = errors.New("client: interface not advertised by compositor")
	ErrNoLockManager        = errors.New("client: ext_session_lock_manager_v1 not bound")
	ErrAlreadyLocked        = errors.New("client: session already locked")
	ErrNotLocked            = errors.New("client: session not locked")
	ErrConnectionClosed     = errors.New("client: compositor closed the connection")
)

// UnsupportedInterfaceError is returned by Bind for an interface the
// compositor never announced.
type UnsupportedInterfaceError struct {
	Interface string
}

func (e *UnsupportedInterfaceError) Error() string {
	return fmt.Sprintf("client: interface %q not advertised by compositor", e.Interface)
}

func (e *UnsupportedInterfaceError) Is(target error) bool {
	return target == ErrUnsupportedInterface
}

// ProtocolError is a fatal wl_display.error reported by the compositor.
type ProtocolError struct {
	Object    wire.ObjectID
	Interface string
	Code      uint32
	Message   string
}

func (e *ProtocolError) Error() string {
	iface := e.Interface
	if iface == "" {
		iface = "unknown"
	}
	return fmt.Sprintf("wl_display::error object %d (%s) code %d: %s", e.Object, iface, e.Code, e.Message)
}
