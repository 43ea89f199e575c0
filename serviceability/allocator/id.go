package allocator

// IDAllocator hands out u16 IDs from the half-open range [RangeStart,
// RangeEnd). Allocation always returns the lowest free ID, which keeps
// assignment deterministic given the substrate's per-account write
// serialization.
type IDAllocator struct {
	rangeStart uint16
	rangeEnd   uint16
	bits       []byte
}

// NewID wraps an ID allocator around an existing bitmap. The bitmap must be
// at least BitmapLen(hi-lo) bytes.
func NewID(lo, hi uint16, bits []byte) (*IDAllocator, error) {
	if hi < lo {
		return nil, ErrOutOfRange
	}
	if len(bits) < BitmapLen(int(hi-lo)) {
		return nil, ErrBitmapTooSmall
	}
	return &IDAllocator{rangeStart: lo, rangeEnd: hi, bits: bits}, nil
}

func (a *IDAllocator) RangeStart() uint16 { return a.rangeStart }
func (a *IDAllocator) RangeEnd() uint16   { return a.rangeEnd }

// Capacity returns the number of IDs in the range.
func (a *IDAllocator) Capacity() int {
	return int(a.rangeEnd - a.rangeStart)
}

// AllocatedCount returns the number of currently allocated IDs.
func (a *IDAllocator) AllocatedCount() int {
	return popcount(a.bits, a.Capacity())
}

// Allocate returns the lowest free ID, or false when the range is saturated.
func (a *IDAllocator) Allocate() (uint16, bool) {
	i := firstFree(a.bits, a.Capacity())
	if i < 0 {
		return 0, false
	}
	setBit(a.bits, i)
	return a.rangeStart + uint16(i), true
}

// AllocateSpecific marks id as allocated. Double allocation is an error, not
// a silent no-op.
func (a *IDAllocator) AllocateSpecific(id uint16) error {
	if id < a.rangeStart || id >= a.rangeEnd {
		return ErrOutOfRange
	}
	i := int(id - a.rangeStart)
	if testBit(a.bits, i) {
		return ErrAlreadyAllocated
	}
	setBit(a.bits, i)
	return nil
}

// Deallocate clears id and reports whether it was allocated.
func (a *IDAllocator) Deallocate(id uint16) bool {
	if id < a.rangeStart || id >= a.rangeEnd {
		return false
	}
	i := int(id - a.rangeStart)
	if !testBit(a.bits, i) {
		return false
	}
	clearBit(a.bits, i)
	return true
}

// IsAllocated reports whether id is currently allocated.
func (a *IDAllocator) IsAllocated(id uint16) bool {
	if id < a.rangeStart || id >= a.rangeEnd {
		return false
	}
	return testBit(a.bits, int(id-a.rangeStart))
}

// Allocated returns every allocated ID in ascending order.
func (a *IDAllocator) Allocated() []uint16 {
	var out []uint16
	for i := 0; i < a.Capacity(); i++ {
		if testBit(a.bits, i) {
			out = append(out, a.rangeStart+uint16(i))
		}
	}
	return out
}
