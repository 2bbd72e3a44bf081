// Package wire implements the Wayland wire format: little-endian words,
// NUL-terminated padded strings, object references and the 8-byte
// message header.
package wire

import "errors"

const (
	WordSize   = 4
	HeaderSize = 2 * WordSize

	// MaxMessageSize is the largest size the 16-bit header field can carry.
	MaxMessageSize = 1<<16 - 1
)

var (
	ErrShortBuffer     = errors.New("wire: unexpected end of buffer")
	ErrInvalidUTF8     = errors.New("wire: string is not valid utf-8")
	ErrInvalidArgument = errors.New("wire: invalid argument")
	ErrMessageTooLarge = errors.New("wire: message too large")
	ErrUnaligned       = errors.New("wire: payload not word aligned")
)

// ObjectID names a protocol object. Zero is the null object.
type ObjectID uint32

// DisplayID is the id of the wl_display object, implicit on every connection.
const DisplayID ObjectID = 1

// NewID is the argument a request carries when it asks the compositor
// to create an object of an interface not fixed by the protocol.
type NewID struct {
	Interface string
	Version   uint32
	ID        ObjectID
}

// Len returns the encoded length of n.
func (n NewID) Len() int {
	return StringLen(n.Interface) + 2*WordSize
}

// pad returns the number of zero bytes needed to align n to a word.
func pad(n int) int {
	return (WordSize - n%WordSize) % WordSize
}
