package allocator

import (
	"errors"
	"testing"
)

func TestIPAllocatorCarvesAlignedBlocks(t *testing.T) {
	t.Parallel()

	base := [5]byte{10, 0, 0, 0, 24}
	bits := make([]byte, BitmapLen(1<<(31-24)))
	a, err := NewIP(base, 31, bits)
	if err != nil {
		t.Fatalf("NewIP: %v", err)
	}
	if a.Capacity() != 128 {
		t.Fatalf("Capacity: got %d, want 128", a.Capacity())
	}

	first, ok := a.Allocate()
	if !ok {
		t.Fatal("Allocate: exhausted")
	}
	if first != [5]byte{10, 0, 0, 0, 31} {
		t.Errorf("first block: got %s", NetworkString(first))
	}
	second, _ := a.Allocate()
	if second != [5]byte{10, 0, 0, 2, 31} {
		t.Errorf("second block: got %s", NetworkString(second))
	}
}

func TestIPAllocatorExhaustion(t *testing.T) {
	t.Parallel()

	base := [5]byte{172, 16, 0, 0, 30}
	bits := make([]byte, BitmapLen(4))
	a, _ := NewIP(base, 32, bits)

	for i := 0; i < 4; i++ {
		if _, ok := a.Allocate(); !ok {
			t.Fatalf("Allocate %d: unexpected exhaustion", i)
		}
	}
	if _, ok := a.Allocate(); ok {
		t.Error("expected exhaustion after 4 allocations")
	}

	if !a.Deallocate([5]byte{172, 16, 0, 2, 32}) {
		t.Error("Deallocate: expected true")
	}
	got, ok := a.Allocate()
	if !ok || got != [5]byte{172, 16, 0, 2, 32} {
		t.Errorf("Allocate after Deallocate: got %s ok=%v", NetworkString(got), ok)
	}
}

func TestIPAllocatorSpecific(t *testing.T) {
	t.Parallel()

	base := [5]byte{10, 1, 0, 0, 23}
	bits := make([]byte, BitmapLen(512))
	a, _ := NewIP(base, 32, bits)

	if err := a.AllocateSpecific([5]byte{10, 1, 1, 200, 32}); err != nil {
		t.Fatalf("AllocateSpecific: %v", err)
	}
	if err := a.AllocateSpecific([5]byte{10, 1, 1, 200, 32}); !errors.Is(err, ErrAlreadyAllocated) {
		t.Errorf("double allocate: got %v", err)
	}
	// Outside the /23.
	if err := a.AllocateSpecific([5]byte{10, 1, 2, 0, 32}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("outside base: got %v", err)
	}
	if err := a.AllocateSpecific([5]byte{10, 0, 0, 0, 32}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("below base: got %v", err)
	}
}

func TestIPAllocatorMisaligned(t *testing.T) {
	t.Parallel()

	base := [5]byte{10, 0, 0, 0, 24}
	bits := make([]byte, BitmapLen(64))
	a, _ := NewIP(base, 30, bits)

	if err := a.AllocateSpecific([5]byte{10, 0, 0, 2, 30}); !errors.Is(err, ErrMisaligned) {
		t.Errorf("misaligned block: got %v, want ErrMisaligned", err)
	}
	if err := a.AllocateSpecific([5]byte{10, 0, 0, 4, 30}); err != nil {
		t.Errorf("aligned block: got %v", err)
	}
}

func TestIPAllocatorBlocksStayInsideBase(t *testing.T) {
	t.Parallel()

	base := [5]byte{192, 168, 4, 0, 22}
	bits := make([]byte, BitmapLen(1<<(31-22)))
	a, _ := NewIP(base, 31, bits)

	for {
		n, ok := a.Allocate()
		if !ok {
			break
		}
		if n[0] != 192 || n[1] != 168 || n[2] < 4 || n[2] > 7 {
			t.Fatalf("block %s escapes base %s", NetworkString(n), NetworkString(base))
		}
		if n[4] != 31 {
			t.Fatalf("block prefix: got %d, want 31", n[4])
		}
	}
	if a.AllocatedCount() != a.Capacity() {
		t.Errorf("AllocatedCount: got %d, want %d", a.AllocatedCount(), a.Capacity())
	}
}

func TestIPAllocatorRejectsInvalidPrefixes(t *testing.T) {
	t.Parallel()

	if _, err := NewIP([5]byte{10, 0, 0, 0, 24}, 20, nil); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("alloc prefix shorter than base: got %v", err)
	}
	if _, err := NewIP([5]byte{10, 0, 0, 0, 33}, 33, nil); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("prefix > 32: got %v", err)
	}
}
