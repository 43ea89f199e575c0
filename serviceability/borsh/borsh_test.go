package borsh

import (
	"bytes"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU8(7)
	w.WriteBool(true)
	w.WriteU16(0xBEEF)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(1 << 40)
	w.WriteF64(2.5)
	w.WritePubkey([32]byte{1, 2, 3})
	w.WriteIPv4([4]byte{10, 0, 0, 1})
	w.WriteNetworkV4([5]byte{10, 0, 0, 0, 24})
	w.WriteString("lax-dz01")
	w.WritePubkeySlice([][32]byte{{9}, {8}})
	w.WriteNetworkV4Slice([][5]byte{{172, 16, 0, 0, 31}})
	w.WriteU32Slice([]uint32{3, 4})

	r := NewReader(w.Bytes())
	if v, _ := r.ReadU8(); v != 7 {
		t.Fatalf("u8: got %d", v)
	}
	if v, _ := r.ReadBool(); !v {
		t.Fatal("bool: got false")
	}
	if v, _ := r.ReadU16(); v != 0xBEEF {
		t.Fatalf("u16: got %#x", v)
	}
	if v, _ := r.ReadU32(); v != 0xDEADBEEF {
		t.Fatalf("u32: got %#x", v)
	}
	if v, _ := r.ReadU64(); v != 1<<40 {
		t.Fatalf("u64: got %d", v)
	}
	if v, _ := r.ReadF64(); v != 2.5 {
		t.Fatalf("f64: got %v", v)
	}
	if v, _ := r.ReadPubkey(); v != ([32]byte{1, 2, 3}) {
		t.Fatalf("pubkey: got %v", v)
	}
	if v, _ := r.ReadIPv4(); v != ([4]byte{10, 0, 0, 1}) {
		t.Fatalf("ipv4: got %v", v)
	}
	if v, _ := r.ReadNetworkV4(); v != ([5]byte{10, 0, 0, 0, 24}) {
		t.Fatalf("network_v4: got %v", v)
	}
	if v, _ := r.ReadString(); v != "lax-dz01" {
		t.Fatalf("string: got %q", v)
	}
	if v, _ := r.ReadPubkeySlice(); len(v) != 2 || v[0] != ([32]byte{9}) {
		t.Fatalf("pubkey slice: got %v", v)
	}
	if v, _ := r.ReadNetworkV4Slice(); len(v) != 1 || v[0] != ([5]byte{172, 16, 0, 0, 31}) {
		t.Fatalf("network_v4 slice: got %v", v)
	}
	if v, _ := r.ReadU32Slice(); len(v) != 2 || v[1] != 4 {
		t.Fatalf("u32 slice: got %v", v)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected empty reader, %d bytes left", r.Remaining())
	}
}

func TestTryReadReturnsDefaultAtBufferEnd(t *testing.T) {
	r := NewReader([]byte{42})
	if v := r.TryReadU8(0); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	if v := r.TryReadU16(7); v != 7 {
		t.Fatalf("expected default 7, got %d", v)
	}
	if v := r.TryReadString("fallback"); v != "fallback" {
		t.Fatalf("expected default, got %q", v)
	}
	if v := r.TryReadPubkeySlice(nil); v != nil {
		t.Fatalf("expected default nil, got %v", v)
	}
}

func TestSliceLengthPrefixBeyondBufferErrors(t *testing.T) {
	// Length prefix claims a million pubkeys, buffer holds none.
	w := NewWriter()
	w.WriteU32(1_000_000)
	r := NewReader(w.Bytes())
	if _, err := r.ReadPubkeySlice(); err == nil {
		t.Fatal("expected error for oversized length prefix")
	}

	// The Try variant treats the corrupt prefix as a default, not a panic.
	r = NewReader(w.Bytes())
	if v := r.TryReadU32Slice(nil); v != nil {
		t.Fatalf("expected default nil, got %v", v)
	}
}

func TestReadStringShortBufferErrors(t *testing.T) {
	w := NewWriter()
	w.WriteString("abcdef")
	data := w.Bytes()[:6] // cut the payload short

	r := NewReader(data)
	if _, err := r.ReadString(); err == nil {
		t.Fatal("expected error for truncated string")
	}
}

func TestReadBytesCopies(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := NewReader(data)
	b, err := r.ReadBytes(4)
	if err != nil {
		t.Fatal(err)
	}
	b[0] = 99
	if !bytes.Equal(data, []byte{1, 2, 3, 4}) {
		t.Fatal("ReadBytes must not alias the source buffer")
	}
}
