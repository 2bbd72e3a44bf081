package proto

import (
	"github.com/mazei513/wlsession/wire"
)

// Payload is the argument list of a request.
type Payload interface {
	Len() int
	Encode(e *wire.Encoder)
}

// Request is an outgoing message addressed to an object.
type Request struct {
	Object  wire.ObjectID
	Opcode  uint16
	Payload Payload
}

// MarshalBinary returns the framed message. The header size is derived
// from the encoded payload.
func (r Request) MarshalBinary() ([]byte, error) {
	e := wire.NewEncoder(r.Payload.Len())
	r.Payload.Encode(e)
	return wire.Frame(r.Object, r.Opcode, e.Bytes())
}

// Size returns the value the header size field will carry.
func (r Request) Size() int {
	return wire.HeaderSize + r.Payload.Len()
}

// Sync carries the new wl_callback id.
type Sync struct {
	Callback wire.ObjectID
}

func (Sync) Len() int                 { return wire.WordSize }
func (p Sync) Encode(e *wire.Encoder) { e.PutObject(p.Callback) }

// GetRegistry carries the new wl_registry id.
type GetRegistry struct {
	Registry wire.ObjectID
}

func (GetRegistry) Len() int                 { return wire.WordSize }
func (p GetRegistry) Encode(e *wire.Encoder) { e.PutObject(p.Registry) }

// Bind carries the global name and the untyped new id.
type Bind struct {
	Name uint32
	ID   wire.NewID
}

func (p Bind) Len() int { return wire.WordSize + p.ID.Len() }

func (p Bind) Encode(e *wire.Encoder) {
	e.PutUint32(p.Name)
	e.PutNewID(p.ID)
}

// Lock carries the new ext_session_lock_v1 id.
type Lock struct {
	Lock wire.ObjectID
}

func (Lock) Len() int                 { return wire.WordSize }
func (p Lock) Encode(e *wire.Encoder) { e.PutObject(p.Lock) }

// Empty is the payload of requests without arguments.
type Empty struct{}

func (Empty) Len() int             { return 0 }
func (Empty) Encode(*wire.Encoder) {}
