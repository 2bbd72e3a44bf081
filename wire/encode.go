package wire

import "encoding/binary"

// Encoder appends arguments to a payload.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with room for size bytes.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

func (e *Encoder) Bytes() []byte { return e.buf }
func (e *Encoder) Len() int      { return len(e.buf) }

func (e *Encoder) PutUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// PutUint16 appends two bytes. Payload arguments are always words; this
// exists for the header.
func (e *Encoder) PutUint16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *Encoder) PutInt32(v int32) {
	e.PutUint32(uint32(v))
}

func (e *Encoder) PutObject(id ObjectID) {
	e.PutUint32(uint32(id))
}

func (e *Encoder) PutString(s string) {
	n := len(s) + 1
	e.PutUint32(uint32(n))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
	for range pad(n) {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) PutNewID(n NewID) {
	e.PutString(n.Interface)
	e.PutUint32(n.Version)
	e.PutObject(n.ID)
}

// StringLen returns the encoded length of s, length word included.
func StringLen(s string) int {
	n := len(s) + 1
	return WordSize + n + pad(n)
}
