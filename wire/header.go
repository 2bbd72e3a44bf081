package wire

import (
	"encoding/binary"
	"fmt"
)

// Header prefixes every message in both directions. Size counts the
// header itself.
type Header struct {
	Object ObjectID
	Opcode uint16
	Size   uint16
}

func (h Header) Append(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(h.Object))
	b = binary.LittleEndian.AppendUint16(b, h.Opcode)
	return binary.LittleEndian.AppendUint16(b, h.Size)
}

// PayloadLen is the number of bytes following the header.
func (h Header) PayloadLen() int {
	return int(h.Size) - HeaderSize
}

// Validate reports whether the declared size can frame a message.
func (h Header) Validate() error {
	if h.Size < HeaderSize || h.Size%WordSize != 0 {
		return fmt.Errorf("object %d opcode %d: declared size %d: %w", h.Object, h.Opcode, h.Size, ErrInvalidArgument)
	}
	return nil
}

func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("header: %w", ErrShortBuffer)
	}
	return Header{
		Object: ObjectID(binary.LittleEndian.Uint32(b[0:])),
		Opcode: binary.LittleEndian.Uint16(b[4:]),
		Size:   binary.LittleEndian.Uint16(b[6:]),
	}, nil
}

// Frame prepends a header to payload. The size field is computed here;
// callers never supply it.
func Frame(object ObjectID, opcode uint16, payload []byte) ([]byte, error) {
	if len(payload)%WordSize != 0 {
		return nil, fmt.Errorf("object %d opcode %d: %d bytes: %w", object, opcode, len(payload), ErrUnaligned)
	}
	size := HeaderSize + len(payload)
	if size > MaxMessageSize {
		return nil, fmt.Errorf("object %d opcode %d: %d bytes: %w", object, opcode, size, ErrMessageTooLarge)
	}
	msg := make([]byte, 0, size)
	msg = Header{Object: object, Opcode: opcode, Size: uint16(size)}.Append(msg)
	return append(msg, payload...), nil
}
