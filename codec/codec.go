// Package codec provides fixed-size, allocation-free encoders for keys and
// values stored in an ehmap.Map. An application may implement Codec itself
// for a bespoke fixed-size struct; this package supplies the common cases.
package codec

import "encoding/binary"

// Codec encodes and decodes a fixed-size value of type T to and from a
// byte slice. Size must be constant for the lifetime of a store: it is
// baked into the on-disk bucket layout at creation time.
type Codec[T any] interface {
	// Size returns the fixed encoded length in bytes.
	Size() int
	// Encode writes v into dst, which is exactly Size() bytes long.
	Encode(v T, dst []byte)
	// Decode reads a value of type T from src, which is exactly Size()
	// bytes long.
	Decode(src []byte) T
}

// Uint64 codes a uint64 in little-endian form.
type Uint64 struct{}

func (Uint64) Size() int                   { return 8 }
func (Uint64) Encode(v uint64, dst []byte) { binary.LittleEndian.PutUint64(dst, v) }
func (Uint64) Decode(src []byte) uint64    { return binary.LittleEndian.Uint64(src) }

// Uint32 codes a uint32 in little-endian form.
type Uint32 struct{}

func (Uint32) Size() int                   { return 4 }
func (Uint32) Encode(v uint32, dst []byte) { binary.LittleEndian.PutUint32(dst, v) }
func (Uint32) Decode(src []byte) uint32    { return binary.LittleEndian.Uint32(src) }

// Bytes8 copies an 8-byte array verbatim.
type Bytes8 struct{}

func (Bytes8) Size() int { return 8 }
func (Bytes8) Encode(v [8]byte, dst []byte) {
	copy(dst, v[:])
}
func (Bytes8) Decode(src []byte) (v [8]byte) {
	copy(v[:], src)
	return
}

// Bytes16 copies a 16-byte array verbatim.
type Bytes16 struct{}

func (Bytes16) Size() int { return 16 }
func (Bytes16) Encode(v [16]byte, dst []byte) {
	copy(dst, v[:])
}
func (Bytes16) Decode(src []byte) (v [16]byte) {
	copy(v[:], src)
	return
}

// Bytes32 copies a 32-byte array verbatim.
type Bytes32 struct{}

func (Bytes32) Size() int { return 32 }
func (Bytes32) Encode(v [32]byte, dst []byte) {
	copy(dst, v[:])
}
func (Bytes32) Decode(src []byte) (v [32]byte) {
	copy(v[:], src)
	return
}
