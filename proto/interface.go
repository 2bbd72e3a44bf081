// Package proto holds the Wayland interfaces this client speaks: the
// request builders for each object type, the typed events, and the
// demultiplexer that turns a byte stream into those events.
package proto

import "github.com/mazei513/wlsession/wire"

// Interface names.
const (
	DisplayInterface            = "wl_display"
	RegistryInterface           = "wl_registry"
	CallbackInterface           = "wl_callback"
	SessionLockManagerInterface = "ext_session_lock_manager_v1"
	SessionLockInterface        = "ext_session_lock_v1"
)

// Request opcodes.
const (
	displaySync        = 0
	displayGetRegistry = 1

	registryBind = 0

	lockManagerDestroy = 0
	lockManagerLock    = 1

	lockDestroy          = 0
	lockUnlockAndDestroy = 2
)

// EventDecoder decodes the payload of one event opcode.
type EventDecoder func(d *wire.Decoder) (Event, error)

// Interface is the event table of an object type, indexed by opcode.
type Interface struct {
	Name   string
	Events []EventDecoder
}

func (i *Interface) decoder(opcode uint16) EventDecoder {
	if int(opcode) >= len(i.Events) {
		return nil
	}
	return i.Events[opcode]
}

var (
	DisplayEvents = &Interface{
		Name:   DisplayInterface,
		Events: []EventDecoder{decodeDisplayError, decodeDeleteID},
	}
	RegistryEvents = &Interface{
		Name:   RegistryInterface,
		Events: []EventDecoder{decodeGlobal, decodeGlobalRemove},
	}
	CallbackEvents = &Interface{
		Name:   CallbackInterface,
		Events: []EventDecoder{decodeDone},
	}
	SessionLockManagerEvents = &Interface{
		Name: SessionLockManagerInterface,
	}
	SessionLockEvents = &Interface{
		Name:   SessionLockInterface,
		Events: []EventDecoder{decodeLocked, decodeFinished},
	}
)

var known = map[string]*Interface{
	DisplayInterface:            DisplayEvents,
	RegistryInterface:           RegistryEvents,
	CallbackInterface:           CallbackEvents,
	SessionLockManagerInterface: SessionLockManagerEvents,
	SessionLockInterface:        SessionLockEvents,
}

// LookupInterface returns the event table for name. Interfaces this
// package does not model get an empty table, so all their events are
// reported as Unhandled.
func LookupInterface(name string) *Interface {
	if i, ok := known[name]; ok {
		return i
	}
	return &Interface{Name: name}
}
