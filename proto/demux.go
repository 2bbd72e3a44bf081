package proto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mazei513/wlsession/wire"
)

var ErrInvalidFrame = errors.New("proto: invalid frame")

// Demux cuts a byte stream into messages and decodes each with the event
// table of the object it is addressed to. Bytes of an incomplete trailing
// message are kept until the next Feed.
type Demux struct {
	objects map[wire.ObjectID]*Interface
	pending []byte
	logger  *slog.Logger
}

// NewDemux returns a Demux that knows only the display object.
func NewDemux(logger *slog.Logger) *Demux {
	if logger == nil {
		logger = slog.Default()
	}
	return &Demux{
		objects: map[wire.ObjectID]*Interface{wire.DisplayID: DisplayEvents},
		logger:  logger,
	}
}

// Register routes events for id to iface.
func (d *Demux) Register(id wire.ObjectID, iface *Interface) {
	d.objects[id] = iface
}

// Forget stops routing events for id.
func (d *Demux) Forget(id wire.ObjectID) {
	delete(d.objects, id)
}

// Interface returns the event table registered for id.
func (d *Demux) Interface(id wire.ObjectID) (*Interface, bool) {
	iface, ok := d.objects[id]
	return iface, ok
}

// Pending returns the number of buffered bytes of an incomplete message.
func (d *Demux) Pending() int { return len(d.pending) }

// Feed appends b to the buffered tail and returns every complete message.
// Messages decoded before a malformed one are returned alongside the error.
// After an error the stream is out of sync and the Demux must not be fed
// again.
func (d *Demux) Feed(ctx context.Context, b []byte) ([]Message, error) {
	d.pending = append(d.pending, b...)

	var msgs []Message
	off := 0
	for len(d.pending)-off >= wire.HeaderSize {
		h, err := wire.ParseHeader(d.pending[off:])
		if err != nil {
			return msgs, d.fail(err)
		}
		if err := h.Validate(); err != nil {
			return msgs, d.fail(fmt.Errorf("%w: %w", ErrInvalidFrame, err))
		}
		if len(d.pending)-off < int(h.Size) {
			break
		}
		payload := d.pending[off+wire.HeaderSize : off+int(h.Size)]
		ev, err := d.decode(ctx, h, payload)
		if err != nil {
			return msgs, d.fail(err)
		}
		msgs = append(msgs, Message{Header: h, Event: ev})
		off += int(h.Size)
	}

	n := copy(d.pending, d.pending[off:])
	d.pending = d.pending[:n]
	return msgs, nil
}

func (d *Demux) fail(err error) error {
	d.pending = nil
	return err
}

func (d *Demux) decode(ctx context.Context, h wire.Header, payload []byte) (Event, error) {
	iface, ok := d.objects[h.Object]
	if !ok {
		d.logger.WarnContext(ctx, "event for unknown object", "id", h.Object, "opcode", h.Opcode, "size", h.Size)
		return Unhandled{Header: h}, nil
	}
	decode := iface.decoder(h.Opcode)
	if decode == nil {
		d.logger.WarnContext(ctx, "unhandled event", "interface", iface.Name, "id", h.Object, "opcode", h.Opcode, "size", h.Size)
		return Unhandled{Interface: iface.Name, Header: h}, nil
	}
	ev, err := decode(wire.NewDecoder(payload))
	if err != nil {
		return nil, fmt.Errorf("%s@%d opcode %d: %w", iface.Name, h.Object, h.Opcode, err)
	}
	return ev, nil
}
