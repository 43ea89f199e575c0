package allocator

import (
	"encoding/binary"
	"fmt"
	"net"
)

// IPAllocator carves uniform blocks of prefix length AllocPrefix out of a
// base network. Block i is the i-th AllocPrefix-sized subnet of the base,
// counted from the network address up.
type IPAllocator struct {
	baseNet     [5]byte // 4 bytes IPv4 + 1 byte prefix length
	allocPrefix uint8
	bits        []byte
}

// NewIP wraps an IP allocator around an existing bitmap. allocPrefix must be
// at least the base prefix length.
func NewIP(baseNet [5]byte, allocPrefix uint8, bits []byte) (*IPAllocator, error) {
	basePrefix := baseNet[4]
	if basePrefix > 32 || allocPrefix > 32 || allocPrefix < basePrefix {
		return nil, ErrOutOfRange
	}
	a := &IPAllocator{baseNet: baseNet, allocPrefix: allocPrefix, bits: bits}
	if len(bits) < BitmapLen(a.Capacity()) {
		return nil, ErrBitmapTooSmall
	}
	return a, nil
}

func (a *IPAllocator) BaseNet() [5]byte    { return a.baseNet }
func (a *IPAllocator) AllocPrefix() uint8  { return a.allocPrefix }

// Capacity returns the number of blocks in the base network.
func (a *IPAllocator) Capacity() int {
	return 1 << (a.allocPrefix - a.baseNet[4])
}

// AllocatedCount returns the number of currently allocated blocks.
func (a *IPAllocator) AllocatedCount() int {
	return popcount(a.bits, a.Capacity())
}

func (a *IPAllocator) blockSize() uint32 {
	return 1 << (32 - a.allocPrefix)
}

func (a *IPAllocator) networkAt(i int) [5]byte {
	base := binary.BigEndian.Uint32(a.baseNet[:4])
	addr := base + uint32(i)*a.blockSize()
	var out [5]byte
	binary.BigEndian.PutUint32(out[:4], addr)
	out[4] = a.allocPrefix
	return out
}

// Allocate returns the lowest free block, or false when the base network is
// saturated.
func (a *IPAllocator) Allocate() ([5]byte, bool) {
	i := firstFree(a.bits, a.Capacity())
	if i < 0 {
		return [5]byte{}, false
	}
	setBit(a.bits, i)
	return a.networkAt(i), true
}

func (a *IPAllocator) index(network [5]byte) (int, error) {
	if network[4] != a.allocPrefix {
		return 0, ErrOutOfRange
	}
	base := binary.BigEndian.Uint32(a.baseNet[:4])
	addr := binary.BigEndian.Uint32(network[:4])
	if addr < base {
		return 0, ErrOutOfRange
	}
	offset := addr - base
	if offset%a.blockSize() != 0 {
		return 0, ErrMisaligned
	}
	i := int(offset / a.blockSize())
	if i >= a.Capacity() {
		return 0, ErrOutOfRange
	}
	return i, nil
}

// AllocateSpecific marks the given network as allocated. The network must be
// an aligned AllocPrefix-sized block inside the base network.
func (a *IPAllocator) AllocateSpecific(network [5]byte) error {
	i, err := a.index(network)
	if err != nil {
		return err
	}
	if testBit(a.bits, i) {
		return ErrAlreadyAllocated
	}
	setBit(a.bits, i)
	return nil
}

// Deallocate clears the given network and reports whether it was allocated.
func (a *IPAllocator) Deallocate(network [5]byte) bool {
	i, err := a.index(network)
	if err != nil {
		return false
	}
	if !testBit(a.bits, i) {
		return false
	}
	clearBit(a.bits, i)
	return true
}

// Allocated returns every allocated block in ascending order.
func (a *IPAllocator) Allocated() [][5]byte {
	var out [][5]byte
	for i := 0; i < a.Capacity(); i++ {
		if testBit(a.bits, i) {
			out = append(out, a.networkAt(i))
		}
	}
	return out
}

// NetworkString renders a [5]byte network as CIDR notation.
func NetworkString(n [5]byte) string {
	return fmt.Sprintf("%s/%d", net.IP(n[:4]).String(), n[4])
}
