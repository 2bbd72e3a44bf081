package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Decoder reads arguments from a message payload. The payload is
// expected to start on a word boundary.
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int { return d.off }

// Len returns the number of unread bytes.
func (d *Decoder) Len() int { return len(d.buf) - d.off }

func (d *Decoder) take(n int) ([]byte, error) {
	if d.Len() < n {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, d.off, d.Len(), ErrShortBuffer)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Decoder) Uint16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *Decoder) Int32() (int32, error) {
	u, err := d.Uint32()
	return int32(u), err
}

func (d *Decoder) Object() (ObjectID, error) {
	u, err := d.Uint32()
	return ObjectID(u), err
}

// String reads a length-prefixed string. The length word only
// distinguishes the null string (0); the bytes run to the first NUL,
// followed by padding to the next word boundary.
func (d *Decoder) String() (string, error) {
	n, err := d.Uint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	end := bytes.IndexByte(d.buf[d.off:], 0)
	if end < 0 {
		return "", fmt.Errorf("unterminated string at offset %d: %w", d.off, ErrShortBuffer)
	}
	s := d.buf[d.off : d.off+end]
	d.off += end + 1
	if _, err := d.take(pad(d.off)); err != nil {
		return "", fmt.Errorf("string padding: %w", err)
	}
	if !utf8.Valid(s) {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidUTF8)
	}
	return string(s), nil
}

func (d *Decoder) NewID() (NewID, error) {
	iface, err := d.String()
	if err != nil {
		return NewID{}, err
	}
	version, err := d.Uint32()
	if err != nil {
		return NewID{}, err
	}
	id, err := d.Object()
	if err != nil {
		return NewID{}, err
	}
	return NewID{Interface: iface, Version: version, ID: id}, nil
}
