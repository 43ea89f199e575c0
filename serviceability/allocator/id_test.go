package allocator

import (
	"errors"
	"testing"
)

func TestIDAllocatorRoundTrip(t *testing.T) {
	t.Parallel()

	bits := make([]byte, BitmapLen(10))
	a, err := NewID(500, 510, bits)
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}

	for want := uint16(500); want <= 509; want++ {
		id, ok := a.Allocate()
		if !ok {
			t.Fatalf("Allocate: exhausted at %d", want)
		}
		if id != want {
			t.Errorf("Allocate: got %d, want %d", id, want)
		}
	}

	if _, ok := a.Allocate(); ok {
		t.Error("Allocate: expected exhaustion after 10 allocations")
	}

	if !a.Deallocate(502) {
		t.Error("Deallocate(502): expected true")
	}
	id, ok := a.Allocate()
	if !ok || id != 502 {
		t.Errorf("Allocate after Deallocate: got %d ok=%v, want 502", id, ok)
	}
}

func TestIDAllocatorLowestFree(t *testing.T) {
	t.Parallel()

	bits := make([]byte, BitmapLen(200))
	a, _ := NewID(0, 200, bits)

	for i := 0; i < 150; i++ {
		a.Allocate()
	}
	a.Deallocate(3)
	a.Deallocate(130)

	id, _ := a.Allocate()
	if id != 3 {
		t.Errorf("expected lowest free id 3, got %d", id)
	}
	id, _ = a.Allocate()
	if id != 130 {
		t.Errorf("expected next free id 130, got %d", id)
	}
}

func TestIDAllocatorSpecific(t *testing.T) {
	t.Parallel()

	bits := make([]byte, BitmapLen(64))
	a, _ := NewID(100, 164, bits)

	if err := a.AllocateSpecific(120); err != nil {
		t.Fatalf("AllocateSpecific(120): %v", err)
	}
	if err := a.AllocateSpecific(120); !errors.Is(err, ErrAlreadyAllocated) {
		t.Errorf("double AllocateSpecific: got %v, want ErrAlreadyAllocated", err)
	}
	if err := a.AllocateSpecific(99); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("AllocateSpecific(99): got %v, want ErrOutOfRange", err)
	}
	if err := a.AllocateSpecific(164); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("AllocateSpecific(164): got %v, want ErrOutOfRange", err)
	}
}

func TestIDAllocatorIterAllocated(t *testing.T) {
	t.Parallel()

	bits := make([]byte, BitmapLen(128))
	a, _ := NewID(0, 128, bits)

	want := []uint16{0, 1, 63, 64, 127}
	for _, id := range want {
		if err := a.AllocateSpecific(id); err != nil {
			t.Fatalf("AllocateSpecific(%d): %v", id, err)
		}
	}

	got := a.Allocated()
	if len(got) != len(want) {
		t.Fatalf("Allocated: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Allocated[%d]: got %d, want %d", i, got[i], want[i])
		}
	}
	if a.AllocatedCount() != len(want) {
		t.Errorf("AllocatedCount: got %d, want %d", a.AllocatedCount(), len(want))
	}
}

func TestIDAllocatorNeverReturnsSameIDTwice(t *testing.T) {
	t.Parallel()

	bits := make([]byte, BitmapLen(1000))
	a, _ := NewID(0, 1000, bits)

	seen := make(map[uint16]bool)
	for {
		id, ok := a.Allocate()
		if !ok {
			break
		}
		if seen[id] {
			t.Fatalf("id %d returned twice", id)
		}
		seen[id] = true
	}
	if len(seen) != 1000 {
		t.Errorf("allocated %d ids, want 1000", len(seen))
	}
}

func TestIDAllocatorBitmapTooSmall(t *testing.T) {
	t.Parallel()

	if _, err := NewID(0, 100, make([]byte, 8)); !errors.Is(err, ErrBitmapTooSmall) {
		t.Errorf("got %v, want ErrBitmapTooSmall", err)
	}
}
