package proto

import "github.com/mazei513/wlsession/wire"

// Event is a decoded incoming message. Kind names the interface and
// event, as in "wl_registry.global".
type Event interface {
	Kind() string
}

// Message is an event together with the header it arrived under.
type Message struct {
	Header wire.Header
	Event  Event
}

// DisplayError is wl_display.error: a fatal error against Object.
type DisplayError struct {
	Object  wire.ObjectID
	Code    uint32
	Message string
}

// DeleteID is wl_display.delete_id.
type DeleteID struct {
	ID wire.ObjectID
}

// Global is wl_registry.global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// GlobalRemove is wl_registry.global_remove.
type GlobalRemove struct {
	Name uint32
}

// Done is wl_callback.done.
type Done struct {
	Data uint32
}

// Locked is ext_session_lock_v1.locked.
type Locked struct{}

// Finished is ext_session_lock_v1.finished.
type Finished struct{}

// Unhandled is an event on an object or opcode without a decoder.
type Unhandled struct {
	Interface string
	Header    wire.Header
}

func (DisplayError) Kind() string { return "wl_display.error" }
func (DeleteID) Kind() string     { return "wl_display.delete_id" }
func (Global) Kind() string       { return "wl_registry.global" }
func (GlobalRemove) Kind() string { return "wl_registry.global_remove" }
func (Done) Kind() string         { return "wl_callback.done" }
func (Locked) Kind() string       { return "ext_session_lock_v1.locked" }
func (Finished) Kind() string     { return "ext_session_lock_v1.finished" }
func (Unhandled) Kind() string    { return "unhandled" }

func decodeDisplayError(d *wire.Decoder) (Event, error) {
	object, err := d.Object()
	if err != nil {
		return nil, err
	}
	code, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	msg, err := d.String()
	if err != nil {
		return nil, err
	}
	return DisplayError{Object: object, Code: code, Message: msg}, nil
}

func decodeDeleteID(d *wire.Decoder) (Event, error) {
	id, err := d.Object()
	if err != nil {
		return nil, err
	}
	return DeleteID{ID: id}, nil
}

func decodeGlobal(d *wire.Decoder) (Event, error) {
	name, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	iface, err := d.String()
	if err != nil {
		return nil, err
	}
	version, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	return Global{Name: name, Interface: iface, Version: version}, nil
}

func decodeGlobalRemove(d *wire.Decoder) (Event, error) {
	name, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	return GlobalRemove{Name: name}, nil
}

func decodeDone(d *wire.Decoder) (Event, error) {
	data, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	return Done{Data: data}, nil
}

func decodeLocked(*wire.Decoder) (Event, error)   { return Locked{}, nil }
func decodeFinished(*wire.Decoder) (Event, error) { return Finished{}, nil }
