// Package allocator implements the two resource allocator shapes shared by
// the serviceability program and the activator: a bitmap ID allocator over a
// half-open u16 range (tunnel IDs, VRF IDs, link IDs, segment routing IDs)
// and an IP subnet allocator that carves uniform blocks out of a base
// network. Both operate over an externally provided byte slice so the bitmap
// can live inside a ResourceExtension account or in process memory.
package allocator

import (
	"encoding/binary"
	"errors"
	"math/bits"
)

var (
	ErrExhausted        = errors.New("allocator: no free slots")
	ErrAlreadyAllocated = errors.New("allocator: slot already allocated")
	ErrNotAllocated     = errors.New("allocator: slot not allocated")
	ErrOutOfRange       = errors.New("allocator: value outside range")
	ErrMisaligned       = errors.New("allocator: value not aligned to block size")
	ErrBitmapTooSmall   = errors.New("allocator: bitmap smaller than capacity")
)

// BitmapLen returns the bitmap size in bytes needed for n slots, aligned to
// an 8-byte boundary for 64-bit word scanning.
func BitmapLen(n int) int {
	return (n + 63) / 64 * 8
}

func testBit(b []byte, i int) bool {
	return b[i/8]&(1<<(i%8)) != 0
}

func setBit(b []byte, i int) {
	b[i/8] |= 1 << (i % 8)
}

func clearBit(b []byte, i int) {
	b[i/8] &^= 1 << (i % 8)
}

// firstFree scans u64 words left to right and returns the index of the
// lowest zero bit below limit, or -1 when the bitmap is saturated. Scanning
// whole words keeps allocation linear in words, not bits.
func firstFree(b []byte, limit int) int {
	for w := 0; w*64 < limit; w++ {
		word := binary.LittleEndian.Uint64(b[w*8 : w*8+8])
		if word == ^uint64(0) {
			continue
		}
		i := w*64 + bits.TrailingZeros64(^word)
		if i >= limit {
			return -1
		}
		return i
	}
	return -1
}

func popcount(b []byte, limit int) int {
	count := 0
	for i := 0; i*64 < limit; i++ {
		word := binary.LittleEndian.Uint64(b[i*8 : i*8+8])
		if rem := limit - i*64; rem < 64 {
			word &= (1 << rem) - 1
		}
		count += bits.OnesCount64(word)
	}
	return count
}
