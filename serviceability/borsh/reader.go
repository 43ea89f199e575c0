// Package borsh provides cursor-based reading and canonical writing of
// borsh-serialized account data, with backward-compatible incremental
// deserialization on the read side.
//
// The read invariant: when a TryRead* finds no bytes left at a field
// boundary, the field is simply missing (appended after this buffer was
// written) and the default is returned. A length prefix that promises more
// bytes than the buffer holds is corrupt data and the strict Read* methods
// return an error.
package borsh

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader is a cursor over borsh-serialized binary data.
type Reader struct {
	data   []byte
	offset int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// take advances the cursor over n bytes, or errors without advancing when
// the buffer is short.
func (r *Reader) take(n int, what string) ([]byte, error) {
	if r.offset+n > len(r.data) {
		return nil, fmt.Errorf("borsh: not enough data for %s at offset %d", what, r.offset)
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

// --- Strict read methods (error on insufficient data) ---

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1, "u8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2, "u16")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4, "u32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8, "u64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadU128() ([16]byte, error) {
	b, err := r.take(16, "u128")
	if err != nil {
		return [16]byte{}, err
	}
	return [16]byte(b), nil
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadPubkey() ([32]byte, error) {
	b, err := r.take(32, "pubkey")
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(b), nil
}

func (r *Reader) ReadIPv4() ([4]byte, error) {
	b, err := r.take(4, "ipv4")
	if err != nil {
		return [4]byte{}, err
	}
	return [4]byte(b), nil
}

func (r *Reader) ReadNetworkV4() ([5]byte, error) {
	b, err := r.take(5, "network_v4")
	if err != nil {
		return [5]byte{}, err
	}
	return [5]byte(b), nil
}

func (r *Reader) ReadString() (string, error) {
	length, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	b, err := r.take(int(length), fmt.Sprintf("string of length %d", length))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n, fmt.Sprintf("%d bytes", n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// sliceLen reads a vector length prefix and validates it against the bytes
// actually remaining, so a corrupt prefix cannot allocate phantom elements.
func (r *Reader) sliceLen(elemSize int, what string) (int, error) {
	length, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	if int(length)*elemSize > r.Remaining() {
		return 0, fmt.Errorf("borsh: not enough data for %d %s at offset %d", length, what, r.offset)
	}
	return int(length), nil
}

func (r *Reader) ReadPubkeySlice() ([][32]byte, error) {
	length, err := r.sliceLen(32, "pubkeys")
	if err != nil || length == 0 {
		return nil, err
	}
	result := make([][32]byte, length)
	for i := range length {
		result[i], _ = r.ReadPubkey()
	}
	return result, nil
}

func (r *Reader) ReadNetworkV4Slice() ([][5]byte, error) {
	length, err := r.sliceLen(5, "network_v4")
	if err != nil || length == 0 {
		return nil, err
	}
	result := make([][5]byte, length)
	for i := range length {
		result[i], _ = r.ReadNetworkV4()
	}
	return result, nil
}

func (r *Reader) ReadU32Slice() ([]uint32, error) {
	length, err := r.sliceLen(4, "u32s")
	if err != nil || length == 0 {
		return nil, err
	}
	result := make([]uint32, length)
	for i := range length {
		result[i], _ = r.ReadU32()
	}
	return result, nil
}

// --- Try variants (return default when no bytes remain at a field boundary) ---

func (r *Reader) TryReadU8(def uint8) uint8 {
	if r.Remaining() < 1 {
		return def
	}
	v, _ := r.ReadU8()
	return v
}

func (r *Reader) TryReadBool(def bool) bool {
	if r.Remaining() < 1 {
		return def
	}
	v, _ := r.ReadBool()
	return v
}

func (r *Reader) TryReadU16(def uint16) uint16 {
	if r.Remaining() < 2 {
		return def
	}
	v, _ := r.ReadU16()
	return v
}

func (r *Reader) TryReadU32(def uint32) uint32 {
	if r.Remaining() < 4 {
		return def
	}
	v, _ := r.ReadU32()
	return v
}

func (r *Reader) TryReadU64(def uint64) uint64 {
	if r.Remaining() < 8 {
		return def
	}
	v, _ := r.ReadU64()
	return v
}

func (r *Reader) TryReadU128(def [16]byte) [16]byte {
	if r.Remaining() < 16 {
		return def
	}
	v, _ := r.ReadU128()
	return v
}

func (r *Reader) TryReadF64(def float64) float64 {
	if r.Remaining() < 8 {
		return def
	}
	v, _ := r.ReadF64()
	return v
}

func (r *Reader) TryReadPubkey(def [32]byte) [32]byte {
	if r.Remaining() < 32 {
		return def
	}
	v, _ := r.ReadPubkey()
	return v
}

func (r *Reader) TryReadIPv4(def [4]byte) [4]byte {
	if r.Remaining() < 4 {
		return def
	}
	v, _ := r.ReadIPv4()
	return v
}

func (r *Reader) TryReadNetworkV4(def [5]byte) [5]byte {
	if r.Remaining() < 5 {
		return def
	}
	v, _ := r.ReadNetworkV4()
	return v
}

func (r *Reader) TryReadString(def string) string {
	if r.Remaining() < 4 {
		return def
	}
	v, err := r.ReadString()
	if err != nil {
		return def
	}
	return v
}

func (r *Reader) TryReadPubkeySlice(def [][32]byte) [][32]byte {
	if r.Remaining() < 4 {
		return def
	}
	v, err := r.ReadPubkeySlice()
	if err != nil {
		return def
	}
	return v
}

func (r *Reader) TryReadNetworkV4Slice(def [][5]byte) [][5]byte {
	if r.Remaining() < 4 {
		return def
	}
	v, err := r.ReadNetworkV4Slice()
	if err != nil {
		return def
	}
	return v
}

func (r *Reader) TryReadU32Slice(def []uint32) []uint32 {
	if r.Remaining() < 4 {
		return def
	}
	v, err := r.ReadU32Slice()
	if err != nil {
		return def
	}
	return v
}
